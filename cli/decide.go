package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

var (
	decideBatch   bool
	decideWorkers int
	decideRules   string
)

var decideCmd = &cobra.Command{
	Use:   "decide <request.yaml>",
	Short: "Plan actions for a goal from the stored rules",
	Long: `decide reads a request with a state and a goal and prints the plan.

With --batch the file holds a list of requests with ids; they are answered
concurrently against one snapshot of the repository.

With --rules the plan is built only from the hand-authored rules in that
file instead of the stored repository.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, st, err := openAgent(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var available []rules.Rule
		if decideRules != "" {
			if available, err = loadRuleFile(decideRules); err != nil {
				return err
			}
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open request: %w", err)
		}
		defer f.Close()

		if !decideBatch {
			in, err := model.LoadDecisionInput(f)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), a.MakeDecision(ctx, in.State, in.Goal, available))
		}

		var reqs []agent.Request
		if err := yaml.NewDecoder(f).Decode(&reqs); err != nil {
			return fmt.Errorf("decode requests: %w", err)
		}
		for i := range reqs {
			reqs[i].State = reqs[i].State.Clone()
			reqs[i].Goal.Target = reqs[i].Goal.Target.Clone()
			if reqs[i].ID == "" {
				reqs[i].ID = fmt.Sprintf("req-%d", i+1)
			}
		}
		workers := decideWorkers
		if workers <= 0 {
			workers = cfg.Workers.DecisionWorkers
		}
		pool := agent.NewPool(a, workers)
		if available != nil {
			pool = pool.WithRules(available)
		}
		resps, err := pool.Decide(ctx, reqs)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), resps)
	},
}

func init() {
	decideCmd.Flags().BoolVar(&decideBatch, "batch", false, "the file holds a list of requests")
	decideCmd.Flags().IntVar(&decideWorkers, "workers", 0, "concurrent decisions for --batch (default from config)")
	decideCmd.Flags().StringVar(&decideRules, "rules", "", "decide from the hand-authored rules in this YAML or JSON file")
}

func loadRuleFile(path string) ([]rules.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()
	static, err := rules.LoadStatic(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]rules.Rule, len(static))
	for i, s := range static {
		out[i] = s
	}
	return out, nil
}
