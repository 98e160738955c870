package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listUser int64

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the habits of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer func() { _ = st.close() }()

		items, err := st.habits.ListHabits(cmd.Context(), listUser)
		if err != nil {
			return err
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		if len(items) == 0 {
			fmt.Println(gray("no habits"))
			return nil
		}
		for _, h := range items {
			fmt.Fprintf(os.Stdout, "%s  %-24s %4d %-10s %s\n", h.ID, h.Name, h.Target, h.Unit, gray(string(h.Kind)))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int64Var(&listUser, "user", 0, "owner user id (0 is the local user)")
	rootCmd.AddCommand(listCmd)
}
