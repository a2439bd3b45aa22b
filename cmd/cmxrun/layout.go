package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/cmxrt/mempool"
)

func newLayoutCmd(g *globalFlags) *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print how a backing block is partitioned into pools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if size == 0 {
				size = cfg.Memory.PoolSize
			}
			if size < 0 {
				return fmt.Errorf("size must be positive, got %d", size)
			}
			return printLayout(cmd.OutOrStdout(), mempool.ComputeLayout(size, cfg.Floors()))
		},
	}

	cmd.Flags().IntVar(&size, "size", 0, "Requested block size in bytes (default: memory.pool_size)")

	return cmd
}

func printLayout(w io.Writer, l mempool.Layout) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "POOL\tOFFSET\tSIZE\tEND\t\n")
	for _, pt := range mempool.PoolTypes {
		r, _ := l.Range(pt)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t\n", pt, r.Offset, r.Size, r.End())
	}
	fmt.Fprintf(tw, "total\t\t%d\t\t\n", l.Total)
	fmt.Fprintf(tw, "requested\t\t%d\t\t\n", l.Requested)
	return tw.Flush()
}
