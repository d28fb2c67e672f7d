package cmd

import (
	"context"

	"studio-orders/config"

	"github.com/spf13/cobra"
)

func outboxCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and deliver queued side effects",
	}

	var batches int
	drain := &cobra.Command{
		Use:   "drain",
		Short: "Deliver due outbox events and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			total := 0
			for i := 0; i < batches; i++ {
				n, err := a.dispatcher.DrainOnce(ctx)
				if err != nil {
					return err
				}
				total += n
				if n == 0 {
					break
				}
			}
			cmd.Printf("delivered %d events\n", total)
			return nil
		},
	}
	drain.Flags().IntVar(&batches, "batches", 10, "maximum number of batches to process")

	cmd.AddCommand(drain)
	return cmd
}
