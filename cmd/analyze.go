package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/datasync-solution/bmc-analyst/internal/canvas"
	"github.com/datasync-solution/bmc-analyst/internal/graph"
	"github.com/datasync-solution/bmc-analyst/internal/telemetry"
	"github.com/datasync-solution/bmc-analyst/internal/ui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a canvas draft without the web client",
	Long: `Loads a Business Model Canvas draft from a YAML file, records it in history
and generates the analysis report. Add --budget, --cashflow or --launch to also
generate those plans. The cash-flow analysis needs the budget, so --cashflow
implies --budget.

Example draft:

  businessStage: New
  primaryGoal: Validation
  industry: Food
  valuePropositions: Home-cooked lunch boxes delivered to offices
  customerSegments: Office workers in Gulshan and Banani
  costStructure: Ingredients, packaging, two delivery riders`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("draft")
		withBudget, _ := cmd.Flags().GetBool("budget")
		withCashFlow, _ := cmd.Flags().GetBool("cashflow")
		withLaunch, _ := cmd.Flags().GetBool("launch")
		asJSON, _ := cmd.Flags().GetBool("json")

		draft, err := loadDraft(appFs, path)
		if err != nil {
			return err
		}

		rt, err := newRuntime(analyzeGateway)
		if err != nil {
			return err
		}
		defer rt.Close()

		start := time.Now()
		err = runAnalysis(cmd, rt, draft, slotsFor(withBudget, withCashFlow, withLaunch))
		trackCommand(rt.telemetry, cmd, start, err)
		if err != nil {
			return err
		}

		snap := rt.session.Graph().Snapshot()
		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		_, err = fmt.Fprint(out, ui.Summary{Plain: !isTerminal(out)}.Render(snap))
		return err
	},
}

// analyzeGateway overrides the LLM gateway in tests.
var analyzeGateway graph.Gateway

// loadDraft reads a YAML draft and merges it over the defaults. Unknown keys
// and non-string values are ignored.
func loadDraft(fsys afero.Fs, path string) (canvas.Draft, error) {
	if path == "" {
		return canvas.Draft{}, errors.New("--draft is required")
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return canvas.Draft{}, fmt.Errorf("read draft: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return canvas.Draft{}, fmt.Errorf("parse draft %s: %w", path, err)
	}
	return canvas.FromMap(raw), nil
}

// slotsFor lists the slots to request in dependency order.
func slotsFor(budget, cashFlow, launch bool) []graph.Slot {
	var slots []graph.Slot
	if budget || cashFlow {
		slots = append(slots, graph.SlotBudget)
	}
	if cashFlow {
		slots = append(slots, graph.SlotCashFlow)
	}
	if launch {
		slots = append(slots, graph.SlotLaunch)
	}
	return slots
}

func runAnalysis(cmd *cobra.Command, rt *appRuntime, draft canvas.Draft, slots []graph.Slot) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()

	rt.session.ReplaceDraft(draft)
	fmt.Fprintln(errOut, "🔍 Analyzing canvas...")
	if _, err := rt.session.Submit(ctx); err != nil {
		if msg := rt.session.LastError(); msg != "" {
			fmt.Fprintln(errOut, "❌", msg)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	for _, slot := range slots {
		fmt.Fprintf(errOut, "⚙️  Generating %s...\n", slot)
		if _, err := rt.session.Graph().RequestSlot(ctx, slot, draft); err != nil {
			return fmt.Errorf("%s failed: %w", slot, err)
		}
	}
	return nil
}

func trackCommand(c telemetry.Client, cmd *cobra.Command, start time.Time, err error) {
	props := telemetry.Properties{
		"command":     cmd.Name(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		c.Track(telemetry.EventCommandError, props)
		return
	}
	c.Track(telemetry.EventCommandExecuted, props)
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("draft", "d", "", "path to a YAML canvas draft (required)")
	analyzeCmd.Flags().Bool("budget", false, "also generate the budget plan")
	analyzeCmd.Flags().Bool("cashflow", false, "also generate the cash-flow risk analysis")
	analyzeCmd.Flags().Bool("launch", false, "also generate the 14-day launch plan")
	analyzeCmd.Flags().Bool("json", false, "print the results as JSON")
	_ = analyzeCmd.MarkFlagRequired("draft")
}
