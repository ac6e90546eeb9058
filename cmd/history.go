package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/datasync-solution/bmc-analyst/internal/config"
	"github.com/datasync-solution/bmc-analyst/internal/history"
	"github.com/datasync-solution/bmc-analyst/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect saved canvas drafts",
	Long: `Lists, shows and deletes the drafts saved in history. A draft is saved
every time it is submitted for analysis and whenever you save it manually. The
20 most recent are kept.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved drafts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()

		items := store.Items()
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No saved drafts yet.")
			return nil
		}

		rows := make([][]string, 0, len(items))
		for _, it := range items {
			rows = append(rows, []string{it.ID, it.Timestamp, it.Preview})
		}
		table := &ui.Table{
			Headers:  []string{"ID", "Saved", "Preview"},
			Rows:     rows,
			MaxWidth: 60,
			Plain:    !isTerminal(out),
		}
		fmt.Fprint(out, table.Render())
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved draft",
	Long:  `Prints a saved draft as JSON, or as YAML with --yaml so it can be fed back to "bmc analyze --draft".`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, _ := cmd.Flags().GetBool("yaml")

		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()

		item, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("%s: %w", args[0], history.ErrNotFound)
		}

		out := cmd.OutOrStdout()
		if asYAML {
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(item.Data); err != nil {
				return err
			}
			return enc.Close()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()

		if _, ok := store.Get(args[0]); !ok {
			return fmt.Errorf("%s: %w", args[0], history.ErrNotFound)
		}
		store.Remove(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted %s\n", args[0])
		return nil
	},
}

// openHistory loads the persisted history without wiring generation.
func openHistory() (*history.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	backend, closeBackend, err := openHistoryBackend(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	store := history.NewStore(backend)
	store.Load()
	return store, func() {
		if closeBackend != nil {
			_ = closeBackend()
		}
	}, nil
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyShowCmd.Flags().Bool("yaml", false, "print the draft as YAML")
}
