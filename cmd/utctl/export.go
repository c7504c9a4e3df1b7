package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/libut/utview/internal/chrometrace"
	"github.com/libut/utview/internal/speedscope"
	"github.com/libut/utview/internal/tracestore"
)

// newExportCmd builds a command converting a trace to another viewer's
// format.
func newExportCmd(root *rootOptions, use, short string, convert func(name string, c *tracestore.Collection) interface{}) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   use + " <trace>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCollection(cmd.Context(), args[0], root.load)
			if err != nil {
				return err
			}
			o := convert(filepath.Base(args[0]), c)
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), o)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := writeJSON(f, o); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write to this file instead of stdout")
	return cmd
}

func newSpeedscopeCmd(root *rootOptions) *cobra.Command {
	return newExportCmd(root, "speedscope", "Convert a trace to a speedscope profile",
		func(name string, c *tracestore.Collection) interface{} {
			return speedscope.FromCollection(name, c)
		})
}

func newChromeTraceCmd(root *rootOptions) *cobra.Command {
	return newExportCmd(root, "chrometrace", "Convert a trace to Chrome trace events for Perfetto",
		func(_ string, c *tracestore.Collection) interface{} {
			return chrometrace.FromCollection(c)
		})
}
