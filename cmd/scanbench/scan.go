package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"blelloch-scan/pkg/bench"
	"blelloch-scan/pkg/scan"
	"blelloch-scan/pkg/seq"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one parallel prefix sum and check it against the sequential oracle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := seq.Make(a.cfg.Input, a.cfg.Size, []byte(a.cfg.Seed))
			if err != nil {
				return err
			}

			engine, err := a.engine()
			if err != nil {
				return err
			}
			got, err := engine.Compute(cmd.Context(), input, a.cfg.MaxWorkers)
			if err != nil {
				return err
			}
			want := scan.Sequential(input)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "parallel:   %v\n", got)
			fmt.Fprintf(out, "sequential: %v\n", want)
			if !slices.Equal(got, want) {
				return bench.ErrMismatch
			}
			fmt.Fprintln(out, "match: true")
			return nil
		},
	}
	cmd.Flags().IntVar(&a.cfg.Size, "size", a.cfg.Size, "input length, a power of two")
	return cmd
}
