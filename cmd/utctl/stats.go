package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/libut/utview/internal/metrics"
	"github.com/libut/utview/internal/timeutil"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var maxTasks uint
	cmd := &cobra.Command{
		Use:   "stats <trace>",
		Short: "Print task duration statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCollection(cmd.Context(), args[0], root.load)
			if err != nil {
				return err
			}
			ma := metrics.NewAggregator(maxTasks, 5)
			ma.AddCollection(c)
			stats := ma.ToStats()
			if root.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			return writeStatsTable(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().UintVar(&maxTasks, "limit", 20, "Maximum number of tasks to print")
	return cmd
}

func writeStatsTable(out io.Writer, stats []metrics.TaskStats) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tCOUNT\tTOTAL\tAVG\tP95\tMAX\tWORST THREAD")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.Count,
			timeutil.FormatSeconds(s.Sum, s.Sum),
			timeutil.FormatSeconds(s.Avg, s.Avg),
			timeutil.FormatSeconds(s.P95, s.P95),
			timeutil.FormatSeconds(s.Max, s.Max),
			s.WorstThread)
	}
	return w.Flush()
}
