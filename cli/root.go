// Package cli is the gateway's command-line entry point: config file
// discovery (--config), env binding via Viper, and the `serve`/`version`
// subcommands. Grounded on the teacher's cli.RootCmd cobra+viper wiring,
// generalized from the RabbitMQ/CouchDB flow service to the MCP tool
// gateway.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	otelecho "go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"

	"github.com/cubeforge/gateway/config"
	"github.com/cubeforge/gateway/gatewayapp"
	gwotel "github.com/cubeforge/gateway/otel"
	"github.com/cubeforge/gateway/version"
)

var cfgFile string

// Version is set at build time via -ldflags; defaults to "dev".
var Version = "dev"

var RootCmd = &cobra.Command{
	Use:   "gatewayd",
	Short: "MCP tool-dispatch gateway for CubeForge model projects",
	Long: `gatewayd exposes a JSON-RPC 2.0 / SSE MCP surface backing a set of
tool calls (ensure_project, add_cube, assign_texture, export_model, ...)
that mutate and render an in-memory model project, with revision-guarded
mutation, structural diffs, a native job queue, and an NDJSON trace log.`,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./gateway.yaml)")
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP server",
	RunE:  runServe,
}

var versionFull bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gateway version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !versionFull {
			fmt.Println(Version)
			return nil
		}
		info := version.GetBuildInfo()
		fmt.Printf("gatewayd %s (go %s)\n", Version, info.GoVersion)
		for _, dep := range info.Dependencies {
			fmt.Printf("  %s %s\n", dep.Path, dep.Version)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionFull, "full", false, "print every resolved module dependency")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logrus.New()
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	otelProvider := gwotel.Init("cubeforge-gateway", Version)
	if otelProvider != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelProvider.Shutdown(ctx)
		}()
	}

	app, err := gatewayapp.New(cfg, entry)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer app.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(otelecho.Middleware("cubeforge-gateway"))
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(cfg.RateLimit),
		)))
	}

	app.Register(e)

	go func() {
		entry.WithField("port", cfg.Port).Info("gateway listening")
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	entry.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}
