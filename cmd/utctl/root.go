package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/libut/utview/internal/logutil"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type rootOptions struct {
	debug  bool
	output string
	load   loadOptions
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "utctl",
		Short: "Inspect task traces from the command line",
		Long: `utctl reconstructs the task intervals of a trace file and prints them.

A trace may be a local path or an http(s) URL.

Examples:
  utctl intervals trace.json                        # every interval of every thread
  utctl intervals trace.json --lo 1.5 --hi 1.6      # intervals visible in [1.5s, 1.6s]
  utctl intervals trace.json --window 0.5 -o json   # last half second, as JSON
  utctl stats https://example.com/trace.json        # task duration statistics
  utctl speedscope trace.json --out trace.speedscope.json
  utctl chrometrace trace.json --out trace.perfetto.json
  utctl watch trace.json                            # summarize again on every change`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogger(opts.debug)
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false,
		"Log reconstruction details")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable,
		"Output format (table, json)")
	cmd.PersistentFlags().StringSliceVar(&opts.load.threads, "thread", nil,
		"Only load the named threads (repeatable)")
	cmd.PersistentFlags().Float64Var(&opts.load.trim, "trim", 0,
		"Drop everything before this many seconds and rebase the trace")
	cmd.PersistentFlags().Float64Var(&opts.load.window, "window", 0,
		"Keep only the last seconds of the trace (0 keeps everything)")
	cmd.PersistentFlags().IntVar(&opts.load.workers, "workers", 4,
		"Threads reconstructed concurrently")

	cmd.AddCommand(
		newIntervalsCmd(opts),
		newStatsCmd(opts),
		newSpeedscopeCmd(opts),
		newChromeTraceCmd(opts),
		newWatchCmd(opts),
	)
	return cmd
}

// configureLogger keeps warnings, such as reconstruction anomalies, unless
// debug is set.
func configureLogger(debug bool) {
	level := logutil.LevelFromEnv(zerolog.WarnLevel)
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Sample(logutil.LevelSampler{Level: level})
}
