package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dinoserve/dino/internal/bundler"
	"github.com/dinoserve/dino/internal/buildutil"
	"github.com/dinoserve/dino/internal/config"
	"github.com/dinoserve/dino/internal/engine"
	"github.com/dinoserve/dino/internal/registry"
	"github.com/dinoserve/dino/internal/router"
	"github.com/dinoserve/dino/internal/watch"
)

const defaultPoolSize = 4

var runPort int

var runCmd = &cobra.Command{
	Use:   "run [directory]",
	Short: "Build and serve the project, watching for changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		return runServer(dir, runPort)
	},
}

func init() {
	runCmd.Flags().IntVar(&runPort, "port", 3000, "port to bind the HTTP server to")
	rootCmd.AddCommand(runCmd)
}

func runServer(dir string, port int) error {
	bundlerOpts := bundler.Options{CacheDir: moduleCacheDir()}

	result, err := buildutil.Build(dir, entryFile, configFile, bundlerOpts)
	if err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	cfg, err := config.Load(result.ConfigPath)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(result.ModulePath)
	if err != nil {
		return err
	}

	pool, err := engine.NewPool(defaultPoolSize, string(source))
	if err != nil {
		return fmt.Errorf("starting worker pool: %w", err)
	}

	swappableRouter, err := router.NewSwappableAppRouter(cfg.CoreRoutes())
	if err != nil {
		pool.Dispose()
		return err
	}
	swappablePool := registry.NewSwappableWorkerPool(pool)

	reg := registry.New()
	reg.Set(cfg.Name, &registry.Tenant{Router: swappableRouter, Pool: swappablePool})

	watcher, err := watch.New([]*watch.Project{{
		Dir:         dir,
		EntryFile:   entryFile,
		ConfigFile:  configFile,
		PoolSize:    defaultPoolSize,
		BundlerOpts: bundlerOpts,
		Router:      swappableRouter,
		Pool:        swappablePool,
	}})
	if err != nil {
		swappablePool.Dispose()
		return fmt.Errorf("starting watcher: %w", err)
	}
	watcher.Start()
	defer watcher.Stop()

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	logrus.Infof("Listening on %s", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: registry.NewDispatcher(reg),
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
