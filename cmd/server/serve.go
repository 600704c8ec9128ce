package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/sciflow/internal/mcp"
	"github.com/rpggio/sciflow/internal/transport"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over HTTP or stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if mode == "" {
				mode = cfg.Transport.Mode
			}

			// Stdout carries JSON-RPC in stdio mode.
			logWriter := io.Writer(cmd.OutOrStdout())
			if mode == "stdio" {
				logWriter = cmd.ErrOrStderr()
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withRuntime(runCtx, logWriter, func(rt *runtime) error {
				switch mode {
				case "stdio":
					return runStdio(runCtx, rt)
				case "http":
					return runHTTP(runCtx, rt)
				default:
					return fmt.Errorf("unsupported transport %q", mode)
				}
			})
		},
	}

	cmd.Flags().StringVar(&mode, "transport", "", "Transport to serve: http or stdio (default from config)")
	return cmd
}

func runStdio(ctx context.Context, rt *runtime) error {
	actorID, err := rt.actor(ctx, "")
	if err != nil {
		return err
	}
	rt.logger.Info("starting stdio transport", "auth", "disabled", "actor_id", actorID)

	server := mcp.NewServer(mcp.Config{
		Services:      rt.app.Services(),
		TransportMode: "stdio",
		DefaultActor:  actorID,
		Logger:        rt.logger,
	})
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTP(ctx context.Context, rt *runtime) error {
	authMiddleware := transport.AuthMiddleware(rt.app.Users)
	var defaultActor string
	if !rt.cfg.Auth.Enabled {
		actorID, err := rt.actor(ctx, "")
		if err != nil {
			return err
		}
		defaultActor = actorID
		authMiddleware = transport.StaticActorMiddleware(actorID)
		rt.logger.Warn("auth disabled", "actor_id", actorID)
	}

	sdkServer := mcp.NewServer(mcp.Config{
		Services:      rt.app.Services(),
		Resolver:      rt.app.Users,
		AuthEnabled:   rt.cfg.Auth.Enabled,
		TransportMode: "http",
		DefaultActor:  defaultActor,
		Logger:        rt.logger,
	})

	router := transport.NewServer(mcp.NewHandler(rt.app.Services(), rt.logger), authMiddleware, rt.logger)
	streamable := mcp.NewStreamableHandler(sdkServer)
	router.Handle("/mcp", streamable)
	router.Handle("/mcp/*", streamable)

	addr := fmt.Sprintf("%s:%d", rt.cfg.Server.Host, rt.cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return shutdown(rt.logger, httpServer)
}

func shutdown(logger *slog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
