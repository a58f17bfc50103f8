package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/amsctl/internal/formatter"
	"github.com/desertthunder/amsctl/internal/shared"
	"github.com/desertthunder/amsctl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// reportProgress drains engine updates until the returned channel is closed. When quiet is set
// the updates only reach the debug log, e.g. while CSV is being written to stdout. done is closed
// once the last update has been written.
func (r *Runner) reportProgress(quiet bool) (chan tasks.ProgressUpdate, <-chan struct{}) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			if quiet {
				r.logger.Debug(update.Message, "phase", update.Phase)
				continue
			}
			switch update.Phase {
			case tasks.FetchPage:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.CreateRecords:
				r.writePlain("   %s\n", update.Message)
			case tasks.RecordRun:
				r.logger.Warn(update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	return progressCh, done
}

// Export returns the action that writes every record of kind as CSV, to --output or stdout.
func (r *Runner) Export(kind formatter.Kind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		engine, err := r.taskEngine()
		if err != nil {
			return err
		}

		opts := tasks.ExportOpts{
			Kind:     kind,
			Search:   strings.TrimSpace(cmd.String("search")),
			PageSize: cmd.Int("page-size"),
			Output:   cmd.String("output"),
		}
		if kind == formatter.KindMusic {
			opts.ArtistID = cmd.Int("artist")
		}

		progressCh, done := r.reportProgress(opts.Output == "")
		result, err := engine.Export(ctx, opts, progressCh)
		close(progressCh)
		<-done

		if err != nil {
			return err
		}

		if result.File == "" {
			if _, err := r.output.Write(result.Data); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		}
		return r.writePlain("✓ Exported %d %s to %s (%d pages)\n", result.Count, kind, result.File, result.Pages)
	}
}

// Import returns the action that creates records of kind from the CSV file argument.
func (r *Runner) Import(kind formatter.Kind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		path := strings.TrimSpace(cmd.StringArg("file"))
		if path == "" {
			return fmt.Errorf("%w: CSV file path", shared.ErrMissingArgument)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()

		engine, err := r.taskEngine()
		if err != nil {
			return err
		}

		opts := tasks.ImportOpts{
			Kind:    kind,
			Source:  filepath.Base(path),
			Workers: cmd.Int("workers"),
		}
		if opts.Workers <= 0 && r.config != nil {
			opts.Workers = r.config.Import.Concurrency
		}
		if kind == formatter.KindMusic {
			opts.ArtistID = cmd.Int("artist")
		}

		asJSON := cmd.Bool("json")
		progressCh, done := r.reportProgress(asJSON)
		result, err := engine.Import(ctx, opts, f, progressCh)
		close(progressCh)
		<-done

		if result == nil {
			return err
		}

		if asJSON {
			if werr := r.writeJSON(importSummary(result), true); werr != nil {
				return werr
			}
			return err
		}

		r.writePlain("\n")
		r.writePlainHeader("Import Complete")
		r.writePlain("Source:  %s\n", opts.Source)
		r.writePlain("Created: %d/%d %s\n", result.Created, result.Total, kind)
		if result.Failed() > 0 {
			r.writePlainln("✗ Failed rows (%d):", result.Failed())
			for _, rowErr := range result.Errors {
				r.writePlain("  %v\n", rowErr)
			}
		}
		return err
	}
}

type importReport struct {
	Kind    string         `json:"kind"`
	Total   int            `json:"total"`
	Created int            `json:"created"`
	Failed  int            `json:"failed"`
	Errors  []importRowErr `json:"errors"`
}

type importRowErr struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

func importSummary(result *tasks.ImportResult) importReport {
	report := importReport{
		Kind:    string(result.Kind),
		Total:   result.Total,
		Created: result.Created,
		Failed:  result.Failed(),
		Errors:  make([]importRowErr, 0, len(result.Errors)),
	}
	for _, e := range result.Errors {
		report.Errors = append(report.Errors, importRowErr{Line: e.Line, Error: e.Err.Error()})
	}
	return report
}

// Imports lists the recorded import runs, newest first.
func (r *Runner) Imports(ctx context.Context, cmd *cli.Command) error {
	kind := strings.TrimSpace(cmd.String("kind"))
	if kind != "" {
		if _, err := formatter.ParseKind(kind); err != nil {
			return err
		}
	}

	runs := r.importRuns()
	if runs == nil {
		return fmt.Errorf("%w: import history database is not available", shared.ErrServiceUnavailable)
	}

	list, err := runs.List(kind, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, cmd.Bool("pretty"))
	}
	if len(list) == 0 {
		return r.writePlain("No imports recorded\n")
	}

	rows := make([][]string, len(list))
	for i, run := range list {
		rows[i] = []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.Kind,
			run.Source,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.Created),
			strconv.Itoa(run.Failed),
			run.Duration().Round(time.Millisecond).String(),
		}
	}
	return r.writePlain("%s\n", formatter.Table([]string{"Started", "Kind", "Source", "Total", "Created", "Failed", "Took"}, rows))
}
