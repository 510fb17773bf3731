package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"besedka/internal/availability"
	"besedka/internal/models"
	"besedka/internal/store"

	"github.com/spf13/cobra"
)

func newVenuesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "venues",
		Short: "List venues from the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			be, err := openBackend(ctx, cfg, &logger)
			if err != nil {
				return err
			}
			defer be.close()

			venues, err := be.store.ListVenues(ctx)
			if err != nil {
				return err
			}
			return printVenues(cmd.OutOrStdout(), venues)
		},
	}
}

func printVenues(w io.Writer, venues []models.Venue) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE/H\tPHOTO")
	for _, v := range venues {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", v.ID, v.Name, v.HourlyPrice, v.Photo)
	}
	return tw.Flush()
}

func newBusyCmd(opts *rootOptions) *cobra.Command {
	var venue, date string
	c := &cobra.Command{
		Use:   "busy",
		Short: "Show busy intervals of a venue on a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := models.ParseDate(date)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			be, err := openBackend(ctx, cfg, &logger)
			if err != nil {
				return err
			}
			defer be.close()

			return printBusy(ctx, cmd.OutOrStdout(), be.store, availability.NewChecker(&logger), venue, day)
		},
	}
	c.Flags().StringVar(&venue, "venue", "", "venue id or name")
	c.Flags().StringVar(&date, "date", "", "date, dd.mm.yyyy")
	_ = c.MarkFlagRequired("venue")
	_ = c.MarkFlagRequired("date")
	return c
}

func printBusy(ctx context.Context, w io.Writer, st store.Store, checker *availability.Checker, venueRef string, day models.Date) error {
	venues, err := st.ListVenues(ctx)
	if err != nil {
		return err
	}
	venue, ok := store.FindVenue(venues, venueRef)
	if !ok {
		return fmt.Errorf("venue %q not found", venueRef)
	}
	rows, err := st.ListReservations(ctx)
	if err != nil {
		return err
	}

	busy := checker.BusySlots(venue.Name, day, rows)
	fmt.Fprintf(w, "%s, %s\n", venue.Name, day)
	if len(busy) == 0 {
		fmt.Fprintln(w, "free all day")
		return nil
	}
	for _, b := range busy {
		fmt.Fprintf(w, "  %s\n", b)
	}
	return nil
}
