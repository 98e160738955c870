package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"habits/internal/card"
)

var randomizeDay string

var randomizeCmd = &cobra.Command{
	Use:   "randomize <habit-id>",
	Short: "Fill a habit's 30 day window with random values",
	Long:  `Draws an independent random value for every day of the window ending on --day and stores it. Intended for demo data.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, h, err := loadHabit(ctx, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = st.close() }()

		day, err := parseDayFlag(randomizeDay)
		if err != nil {
			return err
		}
		m := card.New(ctx, *h, st.values, day, card.WithLogger(logger), card.WithoutPrefetch())
		n := m.RandomizeWindow(ctx)
		if n < card.WindowDays {
			return fmt.Errorf("stored %d of %d days", n, card.WindowDays)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s randomized %d days of %s ending %s\n", green("✓"), n, h.Name, m.Snapshot().LastDay)
		return nil
	},
}

func init() {
	randomizeCmd.Flags().StringVar(&randomizeDay, "day", "", "last day of the window (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(randomizeCmd)
}
