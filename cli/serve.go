package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nstehr/eocatr-core/agent"
	"github.com/nstehr/eocatr-core/ipc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve agents over a unix domain socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, st, err := openAgent(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		socketPath := cfg.Server.Socket
		// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
		if err := os.RemoveAll(socketPath); err != nil {
			return fmt.Errorf("clean up socket %s: %w", socketPath, err)
		}
		listener, err := net.Listen("unix", socketPath)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", socketPath, err)
		}
		defer os.Remove(socketPath)

		m := agent.NewMaintainer(a, st, cfg.Agent.MaintainEvery, cfg.Agent.MaintainInterval)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Start(ctx)
		}()

		slog.Info("listening on domain socket", "path", socketPath, "rules", a.Repository().Len())
		go func() {
			<-ctx.Done()
			listener.Close()
		}()
		serve(ctx, listener, a, m)

		slog.Info("shutting down")
		wg.Wait()
		return nil
	},
}

// serve accepts connections until the listener is closed.
func serve(ctx context.Context, listener net.Listener, a *agent.Agent, m *agent.Maintainer) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}
		slog.Info("new connection accepted")
		go handleConn(ctx, conn, a, m)
	}
}

func handleConn(ctx context.Context, conn net.Conn, a *agent.Agent, m *agent.Maintainer) {
	c := ipc.NewConnection(conn, nil)
	agent.NewSession(ctx, c, a, m)
	c.ReadLoop()
}
