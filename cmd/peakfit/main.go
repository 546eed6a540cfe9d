package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fafnerzhang/codetrekking-sub001/logging"
	"github.com/fafnerzhang/codetrekking-sub001/pipeline"
	"github.com/fafnerzhang/codetrekking-sub001/storage"
	"github.com/fafnerzhang/codetrekking-sub001/tss"
)

func main() {
	var (
		dbPath        = flag.String("db", "", "SQLite database path (empty for in-memory storage)")
		userID        = flag.String("user", "", "User id to index documents under")
		ftp           = flag.Float64("ftp", 0, "Functional threshold power override in watts")
		lthr          = flag.Float64("lthr", 0, "Lactate threshold heart rate override in bpm")
		maxHR         = flag.Float64("max-hr", 0, "Maximum heart rate override in bpm")
		thresholdPace = flag.Float64("threshold-pace", 0, "Threshold pace override in min/km")
		exportDir     = flag.String("export", "", "Directory for record series export")
		format        = flag.String("format", "none", "Record export format: parquet|csv|none")
		logLevel      = flag.String("log-level", "info", "Log level: debug|info|warn|error")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s -user athlete [-db peakfit.db] [-ftp 250] [-export outdir -format parquet] file.fit [file.fit...]\n",
			filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*userID) == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logging.NewLogger(logging.Config{
		Level:  *logLevel,
		Format: "console",
		Fields: map[string]string{"service": "peakfit"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "peakfit: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var store storage.Interface
	if strings.TrimSpace(*dbPath) != "" {
		sqlite, err := storage.OpenSQLite(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "peakfit: open database: %v\n", err)
			os.Exit(1)
		}
		defer sqlite.Close()
		store = sqlite
	} else {
		store = storage.NewMemoryStore()
	}

	res, err := pipeline.Run(context.Background(), pipeline.Options{
		Paths:  flag.Args(),
		UserID: *userID,
		Store:  store,
		Overrides: tss.Overrides{
			FTP:           *ftp,
			ThresholdHR:   *lthr,
			MaxHR:         *maxHR,
			ThresholdPace: *thresholdPace,
		},
		ExportDir: *exportDir,
		Format:    *format,
		Log:       log,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "peakfit: %v\n", err)
		os.Exit(1)
	}

	for _, outcome := range res.Outcomes {
		if outcome.Skipped {
			fmt.Printf("skipped   %-24s %s\n", outcome.ActivityID, outcome.Error)
			continue
		}
		line := fmt.Sprintf("processed %-24s records=%d laps=%d", outcome.ActivityID, outcome.Records, outcome.Laps)
		if outcome.TSSMethod != "" {
			line += fmt.Sprintf(" tss=%.1f (%s)", outcome.TSS, outcome.TSSMethod)
		}
		if outcome.ExportPath != "" {
			line += " export=" + outcome.ExportPath
		}
		fmt.Println(line)
	}
	fmt.Printf("%d processed, %d skipped\n", res.Processed, res.Skipped)

	if res.Processed == 0 && res.Skipped > 0 {
		os.Exit(1)
	}
}
