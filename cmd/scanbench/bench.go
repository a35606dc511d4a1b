package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blelloch-scan/pkg/bench"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		outPath string
		width   int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time parallel and sequential prefix sums over sizes 2^min-exp .. 2^max-exp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			samples, err := bench.Run(cmd.Context(), engine, a.cfg, a.logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, bench.RenderTable(samples))
			fmt.Fprint(out, bench.RenderChart(samples, width))

			if outPath == "" {
				return nil
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := bench.WriteResults(f, samples); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	f := cmd.Flags()
	f.IntVar(&a.cfg.MinExp, "min-exp", a.cfg.MinExp, "smallest size exponent")
	f.IntVar(&a.cfg.MaxExp, "max-exp", a.cfg.MaxExp, "largest size exponent")
	f.IntVar(&a.cfg.Repeats, "repeats", a.cfg.Repeats, "timed runs per size, fastest kept")
	f.StringVar(&outPath, "out", "", "write results as YAML to this file")
	f.IntVar(&width, "width", 50, "chart width in cells")
	return cmd
}
