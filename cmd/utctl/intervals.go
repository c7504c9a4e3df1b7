package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/libut/utview/internal/errorutil"
	"github.com/libut/utview/internal/timeutil"
	"github.com/libut/utview/internal/viewport"
)

type intervalsOptions struct {
	lo, hi float64
}

func newIntervalsCmd(root *rootOptions) *cobra.Command {
	opts := &intervalsOptions{}
	cmd := &cobra.Command{
		Use:   "intervals <trace>",
		Short: "Print the intervals visible in a time range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCollection(cmd.Context(), args[0], root.load)
			if err != nil {
				return err
			}
			bounds := viewport.Range{Lo: 0, Hi: c.TimestampMax}
			rg := bounds
			if cmd.Flags().Changed("lo") {
				rg.Lo = opts.lo
			}
			if cmd.Flags().Changed("hi") {
				rg.Hi = opts.hi
			}
			if !finite(rg.Lo) || !finite(rg.Hi) {
				return errorutil.ErrInvalidRange
			}
			rg = rg.Clamp(bounds.Lo, bounds.Hi)
			views := viewport.Query(c, rg)
			if root.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Range   viewport.Range        `json:"range"`
					Threads []viewport.ThreadView `json:"threads"`
				}{rg, views})
			}
			return writeIntervalsTable(cmd.OutOrStdout(), rg, views)
		},
	}
	cmd.Flags().Float64Var(&opts.lo, "lo", 0, "Range start in seconds (defaults to the trace start)")
	cmd.Flags().Float64Var(&opts.hi, "hi", 0, "Range end in seconds (defaults to the trace end)")
	return cmd
}

func writeIntervalsTable(out io.Writer, rg viewport.Range, views []viewport.ThreadView) error {
	ref := rg.Width()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "THREAD\tTASK\tDEPTH\tSTART\tEND\tDURATION")
	for _, v := range views {
		for _, i := range v.Intervals {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.6f\t%.6f\t%s\n",
				v.ThreadName, i.Task.Name, i.StackDepth, i.StartTime, i.EndTime,
				timeutil.FormatSeconds(ref, i.Duration()))
		}
	}
	return w.Flush()
}

func writeJSON(out io.Writer, v interface{}) error {
	b, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
