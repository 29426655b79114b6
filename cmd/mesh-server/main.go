package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mesh "github.com/goliatone/go-mesh"
	"github.com/goliatone/go-mesh/internal/logging"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func loadConfig(cmd *cli.Command) (mesh.Config, error) {
	cfg, err := mesh.LoadConfig(cmd.String("config"))
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("backend") {
		cfg.BackendURL = cmd.String("backend")
	}
	if cmd.IsSet("project") {
		cfg.Project = cmd.String("project")
	}
	if cmd.IsSet("views") {
		cfg.ViewDirectory = cmd.String("views")
	}
	if cmd.IsSet("languages-dir") {
		cfg.LanguageDirectory = cmd.String("languages-dir")
	}
	if cmd.IsSet("address") {
		cfg.HTTP.Address = cmd.String("address")
	}
	if cmd.IsSet("development") {
		cfg.Development = cmd.Bool("development")
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	module, err := mesh.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build mesh module: %w", err)
	}
	logger := logging.ModuleLogger(module.Container().LoggerProvider(), "mesh.server")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           module.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "address", cfg.HTTP.Address, "backend", cfg.BackendURL, "project", cfg.Project)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if cfg.Development && cfg.LanguageDirectory != "" {
		g.Go(func() error {
			if err := module.WatchLanguages(gCtx); err != nil {
				logger.Warn("language watcher stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "mesh-server",
		Usage:  "Serve CMS content through templates",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config/mesh.yaml",
				Sources: cli.EnvVars("MESH_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "CMS backend URL",
				Sources: cli.EnvVars("MESH_BACKEND_URL"),
			},
			&cli.StringFlag{
				Name:    "project",
				Usage:   "CMS project name",
				Sources: cli.EnvVars("MESH_PROJECT"),
			},
			&cli.StringFlag{
				Name:    "views",
				Usage:   "Template directory",
				Sources: cli.EnvVars("MESH_VIEW_DIRECTORY"),
			},
			&cli.StringFlag{
				Name:    "languages-dir",
				Usage:   "Directory holding lang-<code>.json files",
				Sources: cli.EnvVars("MESH_LANGUAGE_DIRECTORY"),
			},
			&cli.StringFlag{
				Name:    "address",
				Usage:   "HTTP listen address",
				Sources: cli.EnvVars("MESH_HTTP_ADDRESS"),
			},
			&cli.BoolFlag{
				Name:    "development",
				Usage:   "Reload templates and language files on change",
				Sources: cli.EnvVars("MESH_DEVELOPMENT"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "mesh-server: %v\n", err)
		os.Exit(1)
	}
}
