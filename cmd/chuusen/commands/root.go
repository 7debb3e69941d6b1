package commands

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	chuusen "github.com/hamproductions/chuusen-simulator"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	cfgFile  string
	verbose  bool
	inMemory bool

	app *application
)

// application holds everything a command needs once configuration is loaded
type application struct {
	configManager *chuusen.ConfigManager
	config        *chuusen.Config
	logger        *chuusen.ZerologLogger
	monitor       *chuusen.PerformanceMonitor

	redisClient  *redis.Client
	inputBreaker *chuusen.BreakerInputStore
	runArchive   *chuusen.BreakerRunArchive
	service      *chuusen.Service
}

var rootCmd = &cobra.Command{
	Use:   "chuusen",
	Short: "Monte Carlo simulator for ballot lotteries",
	Long: `chuusen estimates how likely a ballot-based lottery is to pick you by simulating
the draw many times over a synthetic population of applicants.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables still apply
		_ = godotenv.Load()

		var err error
		app, err = newApplication(cmd.Context())
		if err != nil {
			return err
		}

		zl := app.logger.Zerolog()
		zl.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Bool("redis", app.redisClient != nil).
			Msg("chuusen starting")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil && app.redisClient != nil {
			_ = app.redisClient.Close()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: config.yaml in ., ./config, /etc/chuusen, $HOME/.chuusen)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "memory", false, "keep inputs in memory instead of Redis")

	rootCmd.AddCommand(runCmd, inputsCmd, resultsCmd, curveCmd)
}

func newApplication(ctx context.Context) (*application, error) {
	cm := chuusen.NewConfigManager()
	cm.SetConfigFile(cfgFile)

	config, err := cm.LoadConfig()
	if err != nil {
		return nil, err
	}
	if verbose {
		config.Logging.Level = "debug"
	}

	logger, err := chuusen.NewRotatingLogger(config.Logging)
	if err != nil {
		return nil, err
	}
	cm.SetLogger(logger)

	a := &application{
		configManager: cm,
		config:        config,
		logger:        logger,
		monitor:       chuusen.NewPerformanceMonitor(),
	}

	controller := chuusen.NewControllerWithConfig(config.Simulation, logger,
		chuusen.WithPerformanceMonitor(a.monitor))

	if inMemory {
		a.service = chuusen.NewService(controller,
			chuusen.NewMemoryInputStore(config.Simulation.DefaultInput), nil, nil, logger)
		return a, nil
	}

	a.redisClient = chuusen.NewRedisClientFromConfig(config.Redis)
	if err := a.redisClient.Ping(ctx).Err(); err != nil {
		_ = a.redisClient.Close()
		return nil, chuusen.ErrRedisConnectionFailed.WithCause(err).
			WithDetails(fmt.Sprintf("%s (use --memory to run without Redis)", config.Redis.Addr))
	}

	inputs := chuusen.NewRedisInputStore(a.redisClient, config.Store, config.Simulation.DefaultInput, logger)
	inputs.SetPerformanceMonitor(a.monitor)
	results := chuusen.NewResultStore(a.redisClient, config.Store, logger)
	results.SetPerformanceMonitor(a.monitor)

	a.inputBreaker = chuusen.NewBreakerInputStore(inputs, config.CircuitBreaker, logger)
	a.runArchive = chuusen.NewBreakerRunArchive(results, config.CircuitBreaker, logger)

	var runLock *chuusen.RunLock
	if config.RunLock.Enabled {
		runLock = chuusen.NewRunLock(a.redisClient, config.RunLock, logger)
	}

	a.service = chuusen.NewService(controller, a.inputBreaker, a.runArchive, runLock, logger)
	return a, nil
}
