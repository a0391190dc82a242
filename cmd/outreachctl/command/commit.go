package command

import (
	"context"
	"fmt"

	"outreach-desk/internal/config"
	"outreach-desk/internal/nurture"
	"outreach-desk/internal/tabular"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type CommitCommand struct {
	Logger *log.Logger
}

type commitFlags struct {
	templates     string
	templatesFile string
	first         bool
	date          string
}

func (cmd CommitCommand) Command(ctx context.Context, cfg *config.Config) *cobra.Command {
	var f commitFlags
	c := &cobra.Command{
		Use:   "commit <working.csv>",
		Short: "fold the sent rows of an edited working sheet into the master",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.main(ctx, c, cfg, args[0], f)
		},
	}
	c.Flags().StringVar(&f.templates, "templates", "", "template repository, one label per line")
	c.Flags().StringVar(&f.templatesFile, "templates-file", "", "file holding the template repository")
	c.Flags().BoolVar(&f.first, "first", false, "first session: replace the master instead of appending")
	c.Flags().StringVar(&f.date, "date", "", "date for rows without one (YYYY-MM-DD), defaults to today")
	return c
}

func (cmd CommitCommand) main(ctx context.Context, c *cobra.Command, cfg *config.Config, path string, f commitFlags) error {
	text, err := templateText(f.templates, f.templatesFile)
	if err != nil {
		return err
	}
	templates := nurture.ParseTemplates(text)
	if len(templates) == 0 {
		return nurture.ErrNoTemplates
	}

	sheet, err := tabular.ReadFile(path)
	if err != nil {
		return err
	}
	rows, err := nurture.ReadWorkingSheet(sheet)
	if err != nil {
		return err
	}

	a, err := open(cfg, cmd.Logger, f.date)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Service.CommitRows(ctx, f.first, rows, templates)
	if err != nil {
		return err
	}

	out := c.OutOrStdout()
	for _, s := range result.Sends {
		fmt.Fprintf(out, "%s\t#%d\t%s\t%s\n", s.PhoneNumber, s.Sequence, s.Template, s.Date)
	}
	fmt.Fprintf(out, "created %d, updated %d, skipped %d\n", result.Created, result.Updated, result.Skipped)
	return nil
}
