package command

import (
	"context"
	"fmt"
	"io"

	"outreach-desk/internal/config"
	"outreach-desk/internal/nurture"
	"outreach-desk/internal/tabular"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ExportCommand struct {
	Logger *log.Logger
}

func (cmd ExportCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var out string
	c := &cobra.Command{
		Use:   "export",
		Short: "write the master to an xlsx workbook",
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.main(ctx, c, cfg, out)
		},
	}
	c.Flags().StringVar(&out, "out", "master_file_A.xlsx", "workbook to write")
	return c
}

func (cmd ExportCommand) main(ctx context.Context, c *cobra.Command, cfg *config.Config, out string) error {
	a, err := open(cfg, cmd.Logger, "")
	if err != nil {
		return err
	}
	defer a.Close()

	master, err := a.Service.Master(ctx)
	if err != nil {
		return err
	}

	err = tabular.WriteFileAtomic(out, func(w io.Writer) error {
		return nurture.WriteMasterXLSX(w, master)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.OutOrStdout(), "exported %d records to %s\n", master.Len(), out)
	return nil
}
