package command

import (
	"context"
	"fmt"

	"outreach-desk/internal/config"
	"outreach-desk/internal/tabular"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type DiffCommand struct {
	Logger *log.Logger
}

func (cmd DiffCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var date string
	c := &cobra.Command{
		Use:   "diff <customers.csv|xlsx>",
		Short: "store today's customer list and print customers new since the previous day",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.main(ctx, c, cfg, args[0], date)
		},
	}
	c.Flags().StringVar(&date, "date", "", "store the list under this date instead of today (YYYY-MM-DD)")
	return c
}

func (cmd DiffCommand) main(ctx context.Context, c *cobra.Command, cfg *config.Config, path, date string) error {
	a, err := open(cfg, cmd.Logger, date)
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := tabular.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := a.Differ.Process(ctx, table)
	if err != nil {
		return err
	}

	out := c.OutOrStdout()
	fmt.Fprintln(out, result.Message)
	for _, customer := range result.NewCustomers {
		fmt.Fprintln(out, customer)
	}
	return nil
}
