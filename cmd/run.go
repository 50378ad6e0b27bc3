package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nessdb/internal/config"
	"nessdb/internal/crash"
	"nessdb/internal/logger"
	"nessdb/internal/metrics"
	"nessdb/internal/server"
	"nessdb/internal/storage/engine"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	addr       string
	engineName string
	dataDir    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the nessdb server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyFlags(cmd, cfg); err != nil {
			return err
		}
		return run(cfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to the YAML configuration file")
	runCmd.Flags().StringVar(&addr, "addr", "", "listen address host:port (overrides server.bind_addr and server.port)")
	runCmd.Flags().StringVar(&engineName, "engine", "", "storage engine: memory, badger or leveldb")
	runCmd.Flags().StringVar(&dataDir, "dir", "", "storage directory")

	rootCmd.AddCommand(runCmd)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("addr") {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", addr, err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid --addr port %q: %w", port, err)
		}
		if host != "" {
			cfg.Server.BindAddr = host
		}
		cfg.Server.Port = p
	}
	if cmd.Flags().Changed("engine") {
		cfg.Storage.Engine = engineName
	}
	if cmd.Flags().Changed("dir") {
		cfg.Storage.Dir = dataDir
	}
	return config.Validate(cfg)
}

func run(cfg *config.Config) error {
	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.Logging.Level,
		FileName:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxAge:     cfg.Logging.MaxAge,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		return err
	}
	defer logger.Sync()

	crash.Install(logger.Logger)

	store, err := engine.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("[server] close storage failed", zap.Error(err))
		}
	}()

	var col *metrics.Collector
	opts := []server.Option{}
	if cfg.Metrics.Enabled {
		col = metrics.New()
		opts = append(opts, server.WithMetrics(col))
	}
	srv := server.New(cfg.Server, store, opts...)

	if cfg.Metrics.Enabled {
		ms, err := metrics.Listen(cfg.Metrics.Addr, metrics.NewRouter(col, func() bool {
			select {
			case <-srv.Ready():
				return true
			default:
				return false
			}
		}))
		if err != nil {
			return err
		}
		go func() {
			if err := ms.Serve(); err != nil {
				logger.Error("[metrics] serve failed", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = ms.Stop(ctx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		logger.Info("[server] shutdown signal received", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("[server] shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("[server] starting",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("engine", cfg.Storage.Engine))

	if err := srv.ListenAndServe(); err != nil {
		if errors.Is(err, server.ErrLoopExited) {
			logger.Error("[server] event loop exited without shutdown request")
		}
		return err
	}
	logger.Info("[server] shutdown complete")
	return nil
}
