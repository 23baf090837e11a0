package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/kokorod/internal/cache"
	"github.com/andrei-cloud/kokorod/internal/config"
	"github.com/andrei-cloud/kokorod/internal/engine"
	"github.com/andrei-cloud/kokorod/internal/logging"
	"github.com/andrei-cloud/kokorod/internal/pool"
	"github.com/andrei-cloud/kokorod/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the synthesis daemon",
	Long: `Start the HTTP synthesis daemon: pre-warm the configured language pools,
start the background scaler and serve requests until interrupted.`,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load configuration")
		}

		if err := logging.Setup(cfg.Log); err != nil {
			log.Fatal().Err(err).Msg("failed to set up logging")
		}

		factory, err := buildFactory(cfg.Engine)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure engine backend")
		}

		mgr, err := pool.NewManager(poolConfig(cfg.Pool), factory)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure pipeline pools")
		}
		mgr.Start()

		var store *cache.Store
		if cfg.Cache.Enabled {
			store, err = cache.Open(cfg.Cache.Path, cfg.Cache.MaxMB)
			if err != nil {
				// The cache is an accelerator; the daemon runs without it.
				log.Warn().Err(err).Msg("synthesis cache disabled")
				store = nil
			} else {
				defer func() { _ = store.Close() }()
			}
		}

		srv := server.New(cfg.Server, cfg.Engine.Backend, mgr, store)

		// Ensure the stop channel is closed only once.
		var stopOnce sync.Once
		stopChan := make(chan os.Signal, 1)
		signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-stopChan
			log.Info().Msgf("signal %v received, shutting down", sig)

			stopOnce.Do(func() {
				ctx, cancel := context.WithTimeout(
					context.Background(),
					cfg.Server.ShutdownTimeout,
				)
				defer cancel()

				if err := srv.Stop(ctx); err != nil {
					log.Error().Err(err).Msg("failed to stop http server")
				}
				if err := mgr.Shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("pipeline pool drain incomplete")
				}
				close(stopChan)
			})
		}()

		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}

		// Block until the shutdown sequence closes the channel.
		<-stopChan

		log.Info().Msg("kokorod stopped gracefully")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildFactory selects the engine backend from configuration.
func buildFactory(ec config.EngineConfig) (engine.Factory, error) {
	switch ec.Backend {
	case "mock":
		return engine.NewMockFactory(), nil
	case "kokoro":
		return engine.NewKokoroFactory(engine.Config{
			Model:    ec.Model,
			Voices:   ec.Voices,
			Tokens:   ec.Tokens,
			DataDir:  ec.DataDir,
			Provider: ec.Provider,
			Threads:  ec.Threads,
		})
	default:
		return nil, fmt.Errorf("unsupported engine backend %q", ec.Backend)
	}
}

// poolConfig converts the resolved configuration sizing into pool settings.
func poolConfig(pc config.PoolConfig) pool.Config {
	pools := make(map[string]pool.Sizing, len(pc.Languages))
	for lang, s := range pc.Resolved() {
		pools[lang] = pool.Sizing{
			Initial:  s.Initial,
			MinSpare: s.MinSpare,
			MaxSize:  s.MaxSize,
			IdleTTL:  s.IdleTTL,
		}
	}

	return pool.Config{
		Pools:                pools,
		AcquireTimeout:       pc.AcquireTimeout,
		MaxConcurrentWarmups: pc.MaxConcurrentWarmups,
		FailureThreshold:     pc.FailureThreshold,
		CircuitCooldown:      pc.CircuitCooldown,
		RetryBackoff:         pc.RetryBackoff,
		ScaleInterval:        pc.ScaleInterval,
	}
}
