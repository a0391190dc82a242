package command

import (
	"context"
	"fmt"

	"outreach-desk/internal/config"
	"outreach-desk/internal/nurture"
	"outreach-desk/internal/snapshot"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type ImportLegacyCommand struct {
	Logger *log.Logger
}

type importFlags struct {
	master    string
	snapshots string
}

func (cmd ImportLegacyCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var f importFlags
	c := &cobra.Command{
		Use:   "import-legacy",
		Short: "load a master workbook and a folder of dated snapshot CSVs into the configured stores",
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.main(ctx, c, cfg, f)
		},
	}
	c.Flags().StringVar(&f.master, "master", "", "legacy master workbook (xlsx)")
	c.Flags().StringVar(&f.snapshots, "snapshots", "", "folder of <YYYY-MM-DD>.csv snapshot files")
	return c
}

func (cmd ImportLegacyCommand) main(ctx context.Context, c *cobra.Command, cfg *config.Config, f importFlags) error {
	if f.master == "" && f.snapshots == "" {
		return errors.New("nothing to import: pass --master and/or --snapshots")
	}

	a, err := open(cfg, cmd.Logger, "")
	if err != nil {
		return err
	}
	defer a.Close()

	out := c.OutOrStdout()

	if f.master != "" {
		legacy, err := nurture.ReadMasterFile(f.master)
		if err != nil {
			return err
		}
		if err := a.Master.Save(ctx, legacy); err != nil {
			return err
		}
		cmd.Logger.WithField("records", legacy.Len()).Info("master imported")
		fmt.Fprintf(out, "imported %d master records\n", legacy.Len())
	}

	if f.snapshots != "" {
		n, err := copySnapshots(ctx, snapshot.NewFileStore(f.snapshots), a.Snapshots)
		if err != nil {
			return err
		}
		cmd.Logger.WithField("dates", n).Info("snapshots imported")
		fmt.Fprintf(out, "imported %d snapshots\n", n)
	}
	return nil
}

func copySnapshots(ctx context.Context, from, to snapshot.Store) (int, error) {
	dates, err := from.Dates(ctx)
	if err != nil {
		return 0, err
	}
	for _, date := range dates {
		customers, err := from.Load(ctx, date)
		if err != nil {
			return 0, err
		}
		if err := to.Save(ctx, date, customers); err != nil {
			return 0, err
		}
	}
	return len(dates), nil
}
