package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/rules"
	"github.com/nstehr/eocatr-core/store"
)

var topN int

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and manage the rule repository",
}

var rulesTopCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the highest-confidence rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, st, err := openAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		return printResult(cmd.OutOrStdout(), records(a.TopRules(topN)))
	},
}

var rulesQueryCmd = &cobra.Command{
	Use:   "query <expr>",
	Short: "List rules matching an expression, e.g. 'Confidence > 0.6 && Does(\"flee\")'",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, st, err := openAgent(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		matched, err := a.QueryRules(args[0], time.Now())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), records(matched))
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export <file.yaml|file.json>",
	Short: "Write every stored rule to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		recs, err := st.LoadRules(cmd.Context())
		if err != nil {
			return err
		}
		if err := store.WriteFile(args[0], recs); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %d rules to %s\n", len(recs), args[0])
		return nil
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file.yaml|file.json>",
	Short: "Merge rules from a file into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		recs, err := store.ReadFile(args[0])
		if err != nil {
			return err
		}
		a, st, err := openAgent(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		n, err := a.Repository().Import(recs)
		if err != nil {
			return err
		}
		if err := a.Save(ctx, st); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "imported %d new rules (%d records)\n", n, len(recs))
		return nil
	},
}

var rulesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Run the validation and pruning phases and save the result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, st, err := openAgent(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		rep := a.Maintain(time.Now())
		if err := a.Save(ctx, st); err != nil {
			return err
		}
		fmt.Fprint(os.Stderr, agent.FormatEvents(rep.Events))
		return printResult(cmd.OutOrStdout(), map[string]any{
			"validated": rep.Validation.Validated,
			"removed":   len(rep.Pruning.Removed),
			"rules":     a.Repository().Len(),
		})
	},
}

func init() {
	rulesTopCmd.Flags().IntVarP(&topN, "num", "n", 10, "number of rules to show")

	rulesCmd.AddCommand(rulesTopCmd)
	rulesCmd.AddCommand(rulesQueryCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rulesCmd.AddCommand(rulesPruneCmd)
}

func records(cs []*rules.Candidate) []rules.Record {
	out := make([]rules.Record, len(cs))
	for i, c := range cs {
		out[i] = c.Record()
	}
	return out
}
