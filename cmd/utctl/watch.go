package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/libut/utview/internal/tracestore"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <trace>",
		Short: "Summarize a trace file again every time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if isURL(args[0]) {
				return fmt.Errorf("watch needs a local file, got %s", args[0])
			}
			out := cmd.OutOrStdout()
			return watchTrace(cmd.Context(), args[0], root.load, func(c *tracestore.Collection, err error) {
				if err != nil {
					// the file is often read while it is still being written
					log.Warn().Err(err).Str("trace", args[0]).Msg("can't load trace")
					return
				}
				if root.output == outputJSON {
					_ = writeJSON(out, c.Summary())
					return
				}
				_ = writeSummaryTable(out, c.Summary())
			})
		},
	}
}

// watchTrace loads the trace at path, then again after every write until
// ctx is done. Each load is passed to report.
func watchTrace(ctx context.Context, path string, opts loadOptions, report func(*tracestore.Collection, error)) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors replace files, so the directory is watched rather than the
	// file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	report(loadCollection(ctx, path, opts))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != path || !e.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug().Str("trace", path).Str("op", e.Op.String()).Msg("trace changed")
			report(loadCollection(ctx, path, opts))
		}
	}
}

func writeSummaryTable(out io.Writer, s tracestore.Summary) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "loaded at %s, %d intervals, %d anomalies, %.6fs\n",
		time.Now().Format(time.TimeOnly), s.Intervals, s.Anomalies, s.TimestampMax)
	fmt.Fprintln(w, "THREAD\tINTERVALS\tANOMALIES\tSTART\tEND")
	for _, t := range s.Threads {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.6f\t%.6f\n", t.Name, t.Intervals, t.Anomalies, t.TimeMin, t.TimeMax)
	}
	return w.Flush()
}
