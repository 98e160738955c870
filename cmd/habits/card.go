package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"habits/internal/card"
	"habits/internal/domain"
)

var (
	cardDay          string
	cardFirstWeekday string
)

var cardCmd = &cobra.Command{
	Use:   "card <habit-id>",
	Short: "Print a habit's card and monthly grid",
	Long:  `Loads the 30 day window of a habit read-only and prints its daily, weekly and monthly figures followed by the monthly grid.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, h, err := loadHabit(ctx, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = st.close() }()

		day, err := parseDayFlag(cardDay)
		if err != nil {
			return err
		}
		fwName := cardFirstWeekday
		if fwName == "" {
			fwName = cfg.Card.FirstWeekday
		}
		fw, err := card.ParseWeekday(fwName)
		if err != nil {
			return err
		}

		m := card.New(ctx, *h, st.values, day, card.WithReadOnly(), card.WithLogger(logger))
		renderCard(os.Stdout, m.Snapshot(), m.Grid(fw))
		return nil
	},
}

func init() {
	cardCmd.Flags().StringVar(&cardDay, "day", "", "last day of the window (YYYY-MM-DD, default today)")
	cardCmd.Flags().StringVar(&cardFirstWeekday, "first-weekday", "", "first grid column (default from config)")
	rootCmd.AddCommand(cardCmd)
}

func loadHabit(ctx context.Context, rawID string) (*store, *domain.Habit, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid habit id: %w", err)
	}
	st, err := openStore(cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	h, err := st.habits.GetHabit(ctx, id)
	if err != nil {
		_ = st.close()
		return nil, nil, err
	}
	if h == nil {
		_ = st.close()
		return nil, nil, fmt.Errorf("habit %s not found", id)
	}
	return st, h, nil
}

func parseDayFlag(s string) (time.Time, error) {
	if s == "" {
		return domain.Today(), nil
	}
	d, err := domain.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --day: %w", err)
	}
	return d, nil
}

func renderCard(w io.Writer, snap card.Snapshot, g card.Grid) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	unit := snap.Unit
	if unit != "" {
		unit = " " + unit
	}
	fmt.Fprintf(w, "\n%s  %s\n", cyan(snap.Name), gray(fmt.Sprintf("(%s, %s .. %s)", snap.Kind, snap.FirstDay, snap.LastDay)))
	for _, ms := range snap.Modes {
		mark := red("✗")
		if ms.Completed {
			mark = green("✓")
		}
		fmt.Fprintf(w, "  %-8s %s %d/%d%s  %3.0f%%\n", ms.Mode, mark, ms.Value, ms.Target, unit, ms.Progress*100)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", strings.Join(padAll(g.Weekdays), " "))
	for _, row := range g.Rows {
		cells := make([]string, 0, len(row))
		for _, c := range row {
			switch c.Kind {
			case card.CellPadding:
				cells = append(cells, "   ")
			case card.CellFuture:
				cells = append(cells, gray("  ·"))
			default:
				text := fmt.Sprintf("%3d", c.Value)
				if c.Completed {
					cells = append(cells, green(text))
				} else {
					cells = append(cells, red(text))
				}
			}
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(cells, " "))
	}
	fmt.Fprintln(w)
}

func padAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%3s", n)
	}
	return out
}
