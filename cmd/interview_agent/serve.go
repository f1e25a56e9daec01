package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/interview-prep/internal/config"
	"github.com/jonathan/interview-prep/internal/server"
	"github.com/jonathan/interview-prep/internal/server/middleware"
)

var (
	servePort        int
	serveRequireAuth bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that accepts research submissions, runs them in the
background and exposes their status, results and a progress event stream.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to PORT or 8080)")
	serveCmd.Flags().BoolVar(&serveRequireAuth, "require-auth", false, "Reject requests without a bearer token (needs JWT_SECRET)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}

	auth, err := serverAuth(serveRequireAuth)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	srv := server.New(server.Config{
		Port:            cfg.Port,
		AllowedOrigins:  cfg.AllowedOrigins(),
		RateLimitPerMin: cfg.RateLimitPerMin,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Auth:            auth,
		RequireAuth:     serveRequireAuth,
	}, a.db, a.runner, a.tracker, a.logger)

	return srv.Start(ctx)
}

// serverAuth enables bearer tokens when JWT_SECRET is set. Requiring auth
// without a secret is a configuration error.
func serverAuth(required bool) (middleware.TokenValidator, error) {
	if os.Getenv("JWT_SECRET") == "" {
		if required {
			return nil, fmt.Errorf("--require-auth needs JWT_SECRET to be set")
		}
		return nil, nil
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	return server.NewJWTService(jwtConfig).AsTokenValidator(), nil
}
