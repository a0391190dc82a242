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

type StageCommand struct {
	Logger *log.Logger
}

type stageFlags struct {
	leads, priority string
	templates       string
	templatesFile   string
	first           bool
	out             string
	date            string
}

func (cmd StageCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var f stageFlags
	c := &cobra.Command{
		Use:   "stage",
		Short: "merge a nurturing list with priorities and write an editable working sheet",
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.main(ctx, c, cfg, f)
		},
	}
	c.Flags().StringVar(&f.leads, "leads", "", "nurturing list (csv or xlsx) with a 'Phone Number' column")
	c.Flags().StringVar(&f.priority, "priority", "", "priority table (csv or xlsx) with 'Phone Number' and 'Priority'")
	c.Flags().StringVar(&f.templates, "templates", "", "template repository, one label per line")
	c.Flags().StringVar(&f.templatesFile, "templates-file", "", "file holding the template repository")
	c.Flags().BoolVar(&f.first, "first", false, "first session: no saturation filter")
	c.Flags().StringVar(&f.out, "out", "working.csv", "working sheet to write")
	c.Flags().StringVar(&f.date, "date", "", "session date (YYYY-MM-DD), defaults to today")
	c.MarkFlagRequired("leads")
	c.MarkFlagRequired("priority")
	return c
}

func (cmd StageCommand) main(ctx context.Context, c *cobra.Command, cfg *config.Config, f stageFlags) error {
	templates, err := templateText(f.templates, f.templatesFile)
	if err != nil {
		return err
	}

	leads, err := tabular.ReadFile(f.leads)
	if err != nil {
		return err
	}
	priorities, err := tabular.ReadFile(f.priority)
	if err != nil {
		return err
	}

	a, err := open(cfg, cmd.Logger, f.date)
	if err != nil {
		return err
	}
	defer a.Close()

	rows, repo, err := a.Service.Prepare(ctx, nurture.StageInput{
		Leads:        leads,
		Priorities:   priorities,
		Templates:    templates,
		FirstSession: f.first,
	})
	if err != nil {
		return err
	}

	err = tabular.WriteFileAtomic(f.out, func(w io.Writer) error {
		return nurture.WriteWorkingSheet(w, rows)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.OutOrStdout(), "wrote %d leads to %s (templates: %d)\n", len(rows), f.out, len(repo))
	return nil
}
