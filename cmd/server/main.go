package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"syscall"

	"github.com/enrichman/httpgrace"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/bassista/go_obpdocs/internal/api/middleware"
	route "github.com/bassista/go_obpdocs/internal/api/route"
	appctx "github.com/bassista/go_obpdocs/internal/app"
	"github.com/bassista/go_obpdocs/internal/cache"
	"github.com/bassista/go_obpdocs/internal/config"
	"github.com/bassista/go_obpdocs/internal/index"
	"github.com/bassista/go_obpdocs/internal/logger"
	"github.com/bassista/go_obpdocs/internal/obp"
	"github.com/bassista/go_obpdocs/internal/repository"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var confPath string

	root := &cobra.Command{
		Use:           "obp-docs",
		Short:         "OBP API explorer document service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(confPath)
		},
	}
	root.PersistentFlags().StringVar(&confPath, "config", "", "directory containing config.yaml")

	root.AddCommand(newServeCmd(&confPath))
	root.AddCommand(newRefreshCmd(&confPath))
	root.AddCommand(newVersionsCmd(&confPath))
	return root
}

func newServeCmd(confPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build the application context and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*confPath)
		},
	}
}

func newRefreshCmd(confPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch both document kinds once and store them in the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*confPath)
			if err != nil {
				return err
			}
			app, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			written, err := app.RefreshNow(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d partitions refreshed\n", written, len(cache.Partitions()))
			return err
		},
	}
}

func newVersionsCmd(confPath *string) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the resource doc versions of the cached snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*confPath)
			if err != nil {
				return err
			}
			var versions []string
			if remote {
				versions, err = remoteVersions(cmd.Context(), cfg)
			} else {
				versions, err = cachedVersions(cmd.Context(), cfg)
			}
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the API server instead of the cache")
	return cmd
}

func cachedVersions(ctx context.Context, cfg *config.Config) ([]string, error) {
	storage, err := cache.NewStorageFromConfig(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot init cache storage: %w", err)
	}
	defer storage.Close()

	part, err := storage.Open(ctx, cache.ResourceDocsPartition)
	if err != nil {
		return nil, err
	}
	payload, found, err := part.Match(ctx, cache.RootKey)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("resource docs cache is empty, run refresh first")
	}
	idx, err := index.BuildResourceDocs(payload)
	if err != nil {
		return nil, err
	}
	return idx.Versions, nil
}

func remoteVersions(ctx context.Context, cfg *config.Config) ([]string, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	scanned, err := client.Versions(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(scanned))
	for _, v := range scanned {
		versions = append(versions, v.Key())
	}
	sort.Strings(versions)
	return versions, nil
}

func loadConfig(confPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(confPath)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := logger.SetLevel(cfg.Misc.LogLevel); err != nil {
		logger.WithComponent("main").Warnf("invalid log level '%s', using 'info': %v", cfg.Misc.LogLevel, err)
		_ = logger.SetLevel("info")
	}
	logger.WithComponent("main").Debugf("log level set to: %s", logger.Logger.GetLevel())
	return cfg, nil
}

func newClient(cfg *config.Config) (*obp.Client, error) {
	return obp.NewClient(cfg.API.Host, cfg.API.Version,
		obp.WithToken(cfg.API.Token),
		obp.WithConnectors(cfg.Upstream.Connectors...),
	)
}

// buildApp wires storage, document source and upstream client into an App.
func buildApp(cfg *config.Config) (*appctx.App, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot init api client: %w", err)
	}

	var src repository.Source = client
	if cfg.Upstream.Mode == config.UpstreamModeDir {
		dirSrc, err := repository.NewDirSource(cfg.Upstream.Dir)
		if err != nil {
			return nil, fmt.Errorf("cannot init mirror source: %w", err)
		}
		src = dirSrc
	}

	storage, err := cache.NewStorageFromConfig(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot init cache storage: %w", err)
	}

	app, err := appctx.New(cfg, storage, src, client)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("cannot init app: %w", err)
	}
	return app, nil
}

func runServe(confPath string) error {
	cfg, err := loadConfig(confPath)
	if err != nil {
		return err
	}
	logger.WithComponent("main").Infof("Documents from %s (%s mode), cache backend %s", cfg.API.Host, cfg.Upstream.Mode, cfg.Cache.Backend)
	logger.WithComponent("main").Infof("App will run on port: %d", cfg.Server.Port)

	app, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if err := app.StartWatchers(); err != nil {
		return fmt.Errorf("cannot start watchers: %w", err)
	}

	// The context is published before the first request is served.
	if _, err := app.Bootstrap(); err != nil {
		return fmt.Errorf("cannot publish application context: %w", err)
	}

	gin.SetMode(cfg.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(logger.Logger, cfg.Misc.HoneybadgerAPIKey))
	r.Use(gin.Recovery())
	route.SetupRoutes(r, app)

	srv := createGraceHttpServer(app.BaseCtx, "main-server", cfg.Server, r)
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	return httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
}
