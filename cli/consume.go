package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/ingest"
	"github.com/nstehr/eocatr-core/model"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Learn from experiences on the Redis stream until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rdb, err := ingest.ConnectRedis(cfg.Ingest.RedisURL)
		if err != nil {
			return fmt.Errorf("%w\nSet EOCATR_REDIS_URL environment variable", err)
		}
		defer rdb.Close()

		a, st, err := openAgent(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		m := agent.NewMaintainer(a, st, cfg.Agent.MaintainEvery, cfg.Agent.MaintainInterval)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Start(ctx)
		}()

		in := cfg.Ingest
		slog.Info("consuming experiences", "stream", in.Stream, "group", in.Group, "consumer", in.Consumer)
		n, err := ingest.NewConsumer(rdb, in.Stream, in.Group, in.Consumer).Run(ctx,
			func(_ context.Context, exp *model.Experience) error {
				a.ProcessExperience(exp, nil)
				m.Observe()
				return nil
			})
		stop()
		wg.Wait()
		slog.Info("consumer stopped", "experiences", n, "rules", a.Repository().Len())
		return err
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <experiences.yaml>...",
	Short: "Push experiences from files onto the Redis stream",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rdb, err := ingest.ConnectRedis(cfg.Ingest.RedisURL)
		if err != nil {
			return fmt.Errorf("%w\nSet EOCATR_REDIS_URL environment variable", err)
		}
		defer rdb.Close()

		pub := ingest.NewPublisher(rdb, cfg.Ingest.Stream)
		total := 0
		for _, path := range args {
			exps, err := loadExperienceFile(path)
			if err != nil {
				return err
			}
			for _, exp := range exps {
				if _, err := pub.Publish(ctx, exp); err != nil {
					return err
				}
				total++
			}
		}
		fmt.Fprintf(os.Stderr, "published %d experiences to %s\n", total, cfg.Ingest.Stream)
		return nil
	},
}
