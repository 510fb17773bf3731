package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"besedka/internal/export"
	"besedka/internal/models"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var out, from, to, venue string
	c := &cobra.Command{
		Use:   "export",
		Short: "Export reservations to an XLSX file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(venue, from, to)
			if err != nil {
				return err
			}
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			be, err := openBackend(ctx, cfg, &logger)
			if err != nil {
				return err
			}
			defer be.close()

			if out == "" {
				out = export.FileName(filter)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := export.Write(ctx, be.store, filter, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d reservations to %s\n", n, out)
			return nil
		},
	}
	c.Flags().StringVarP(&out, "out", "o", "", "output file")
	c.Flags().StringVar(&from, "from", "", "first date, dd.mm.yyyy")
	c.Flags().StringVar(&to, "to", "", "last date, dd.mm.yyyy")
	c.Flags().StringVar(&venue, "venue", "", "venue name")
	return c
}

func parseFilter(venue, from, to string) (export.Filter, error) {
	f := export.Filter{Venue: venue}
	var err error
	if from != "" {
		if f.From, err = models.ParseDate(from); err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
	}
	if to != "" {
		if f.To, err = models.ParseDate(to); err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
	}
	return f, nil
}
