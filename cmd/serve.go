package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trellisgraph/trellis/internal/api"
	"github.com/trellisgraph/trellis/internal/assets"
	"github.com/trellisgraph/trellis/internal/config"
	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/watcher"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the composition daemon",
	Long: `Run the composition engine as a daemon that exposes an HTTP API.
Clients link, retarget, and unlink nodes through REST endpoints and
subscribe to composition notifications over SSE.

The daemon watches its config file and hot-reloads the log level and
collaborator directory without a restart.

Example:
  trellis serve                  # Listen on the configured address
  trellis serve --addr :8080     # Listen on port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cleanup, err := initLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	server, err := api.NewServer(api.ServerConfig{
		Addr:     addr,
		Protocol: eng.proto,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Watch the config file for log-level and directory changes.
	stopWatch, err := watchConfig(eng)
	if err != nil {
		log.ErrorErr(log.CatWatcher, "Config watch unavailable; continuing without hot reload", err)
	} else {
		defer stopWatch()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("Trellis daemon listening on port %d\n", server.Port())
	fmt.Println("Press Ctrl+C to stop")

	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.ErrorErr(log.CatAPI, "Error stopping API server", err)
	}

	fmt.Println("Daemon stopped")
	return nil
}

// watchConfig hot-reloads the log level and collaborator directory when the
// config file changes. Engine address, depth bound, and DB path still need
// a restart. Returns a stop func.
func watchConfig(eng *engine) (func(), error) {
	w, err := watcher.New(watcher.DefaultConfig(configFilePath()))
	if err != nil {
		return nil, err
	}
	onChange, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-onChange:
				if !ok {
					return
				}
				reloadConfig(eng)
			}
		}
	}()

	return func() {
		close(done)
		_ = w.Stop()
	}, nil
}

// reloadConfig re-reads the config file and applies the hot-reloadable
// parts. An unreadable or invalid file keeps the running settings.
func reloadConfig(eng *engine) {
	if err := viper.ReadInConfig(); err != nil {
		log.ErrorErr(log.CatWatcher, "Config reload failed; keeping current settings", err)
		return
	}
	var next config.Config
	if err := viper.Unmarshal(&next); err != nil {
		log.ErrorErr(log.CatWatcher, "Config reload failed; keeping current settings", err)
		return
	}
	if err := next.Validate(); err != nil {
		log.ErrorErr(log.CatWatcher, "Config reload rejected", err)
		return
	}

	applyLogLevel(next.Log)

	// Register any newly listed collaborators. Removal still needs a
	// restart so in-flight compositions keep resolving.
	conn := eng.db.Connection()
	for _, addr := range next.Directory.Collections {
		if _, err := eng.dir.Collection(addr); err != nil {
			eng.dir.RegisterCollection(addr, assets.NewLocalCollection(conn, addr))
			log.Info(log.CatWatcher, "Registered collection from config reload", "address", addr)
		}
	}
	for _, addr := range next.Directory.Currencies {
		if _, err := eng.dir.Currency(addr); err != nil {
			eng.dir.RegisterCurrency(addr, assets.NewLocalCurrency(conn, addr))
			log.Info(log.CatWatcher, "Registered currency from config reload", "address", addr)
		}
	}
	for _, addr := range next.Directory.MultiAssets {
		if _, err := eng.dir.MultiAsset(addr); err != nil {
			eng.dir.RegisterMultiAsset(addr, assets.NewLocalMultiAsset(conn, addr))
			log.Info(log.CatWatcher, "Registered multi-asset from config reload", "address", addr)
		}
	}

	cfg = next
	log.Info(log.CatWatcher, "Config reloaded", "level", next.Log.Level)
}
