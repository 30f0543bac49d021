package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/model"
	"github.com/nstehr/eocatr-core/rules"
)

var skipMaintain bool

var learnCmd = &cobra.Command{
	Use:   "learn <experiences.yaml>...",
	Short: "Learn rules from experience files and save the repository",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, st, err := openAgent(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var exps []*model.Experience
		for _, path := range args {
			batch, err := loadExperienceFile(path)
			if err != nil {
				return err
			}
			exps = append(exps, batch...)
		}

		sum := learn(a, exps)
		if !skipMaintain {
			rep := a.Maintain(time.Now())
			sum.Validated = rep.Validation.Validated
			sum.Pruned = len(rep.Pruning.Removed)
		}
		sum.Rules = a.Repository().Len()
		sum.Pending = a.Pending()

		if err := a.Save(ctx, st); err != nil {
			return err
		}
		fmt.Fprint(os.Stderr, agent.FormatEvents(a.Events()))
		return printResult(cmd.OutOrStdout(), sum)
	},
}

func init() {
	learnCmd.Flags().BoolVar(&skipMaintain, "no-maintain", false, "skip the validation and pruning pass after learning")
}

type learnSummary struct {
	Experiences int `json:"experiences" yaml:"experiences"`
	Candidates  int `json:"candidates" yaml:"candidates"`
	Promoted    int `json:"promoted" yaml:"promoted"`
	Validated   int `json:"validated" yaml:"validated"`
	Pruned      int `json:"pruned" yaml:"pruned"`
	Pending     int `json:"pending" yaml:"pending"`
	Rules       int `json:"rules" yaml:"rules"`
}

func learn(a *agent.Agent, exps []*model.Experience) learnSummary {
	sum := learnSummary{Experiences: len(exps)}
	for _, exp := range exps {
		for _, c := range a.ProcessExperience(exp, nil) {
			sum.Candidates++
			if c.Status() == rules.Promoted {
				sum.Promoted++
			}
		}
	}
	return sum
}

func loadExperienceFile(path string) ([]*model.Experience, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open experiences: %w", err)
	}
	defer f.Close()
	exps, err := model.LoadExperiences(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exps, nil
}
