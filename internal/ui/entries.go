package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/hassist/internal/config"
)

func (a *App) entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List configured assistant entries",
		RunE: func(_ *cobra.Command, _ []string) error {
			if len(a.config.Entries) == 0 {
				fmt.Println(formatMuted("No entries configured. Run `hassist setup`."))
				return nil
			}
			fmt.Println(formatHeader(fmt.Sprintf("%-24s  %-24s  %-8s  %s", "ID", "NAME", "PROVIDER", "MODEL")))
			for _, e := range a.config.Entries {
				fmt.Printf("%-24s  %-24s  %-8s  %s\n", e.ID, e.Name, e.Provider, e.Model)
			}
			return nil
		},
	}
	cmd.AddCommand(a.entriesRemoveCmd())
	return cmd
}

func (a *App) entriesRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an assistant entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id := args[0]
			if _, ok := a.config.Entry(id); !ok {
				return fmt.Errorf("%w: %s", config.ErrEntryNotFound, id)
			}
			if !yes && !promptYesNo(fmt.Sprintf("Remove entry %s?", id)) {
				fmt.Println("Aborted.")
				return nil
			}
			a.config.RemoveEntry(id)
			if err := a.save(); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Printf("%s %s\n", formatOK("Removed"), id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
