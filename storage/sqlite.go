package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	peakfit "github.com/fafnerzhang/codetrekking-sub001"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStore persists documents in a single SQLite database. Bodies are
// stored as JSON; user/activity ids are lifted into columns for filtering.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// schema migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	// SQLite won't create parent directories itself.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &peakfit.StorageError{Op: "open", Err: err}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_fk=1&_busy_timeout=8000&mode=rwc", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &peakfit.StorageError{Op: "open", Err: err}
	}
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, &peakfit.StorageError{Op: "migrate", Err: err}
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, &peakfit.StorageError{Op: "migrate", Err: err}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Search(ctx context.Context, dt DataType, filter QueryFilter) ([]Document, error) {
	query := `SELECT body FROM documents WHERE data_type = ?`
	args := []any{string(dt)}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.ActivityID != "" {
		query += ` AND activity_id = ?`
		args = append(args, filter.ActivityID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &peakfit.StorageError{Op: "search", Err: err}
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, &peakfit.StorageError{Op: "search", Err: err}
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, &peakfit.StorageError{Op: "search", Err: err}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &peakfit.StorageError{Op: "search", Err: err}
	}
	return applySort(docs, filter), nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, dt DataType, id string) (Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE data_type = ? AND doc_id = ?`,
		string(dt), id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &peakfit.StorageError{Op: "get", Err: err}
	}
	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &peakfit.StorageError{Op: "get", Err: err}
	}
	return doc, nil
}

func (s *SQLiteStore) IndexDocument(ctx context.Context, dt DataType, id string, doc Document) error {
	return s.withTx(func(tx *sql.Tx) error {
		return upsertDocument(ctx, tx, dt, id, doc)
	})
}

func (s *SQLiteStore) BulkIndex(ctx context.Context, dt DataType, docs []IdentifiedDocument) (BulkResult, error) {
	var result BulkResult
	err := s.withTx(func(tx *sql.Tx) error {
		for _, d := range docs {
			if err := upsertDocument(ctx, tx, dt, d.ID, d.Doc); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, err.Error())
				continue
			}
			result.SuccessCount++
		}
		return nil
	})
	if err != nil {
		return result, &peakfit.StorageError{Op: "bulk_index", Err: err}
	}
	return result, nil
}

func (s *SQLiteStore) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &peakfit.StorageError{Op: "begin", Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func upsertDocument(ctx context.Context, tx *sql.Tx, dt DataType, id string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return &peakfit.StorageError{Op: "marshal", Err: err}
	}
	userID, _ := doc["user_id"].(string)
	activityID, _ := doc["activity_id"].(string)
	_, err = tx.ExecContext(ctx, `INSERT INTO documents(data_type, doc_id, user_id, activity_id, body, indexed_at)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(data_type, doc_id) DO UPDATE SET
			user_id = excluded.user_id,
			activity_id = excluded.activity_id,
			body = excluded.body,
			indexed_at = excluded.indexed_at`,
		string(dt), id, userID, activityID, string(body), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &peakfit.StorageError{Op: "index_document", Err: err}
	}
	return nil
}
