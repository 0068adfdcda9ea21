package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/homie2google/internal/adapter/actor"
	"github.com/berfenger/homie2google/internal/adapter/homegraph"
	"github.com/berfenger/homie2google/internal/adapter/homie"
	"github.com/berfenger/homie2google/internal/config"
	"github.com/berfenger/homie2google/internal/core/actor"
	"github.com/berfenger/homie2google/internal/core/port"
	"github.com/berfenger/homie2google/internal/server"
	"github.com/berfenger/homie2google/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	pflag.StringP("config", "c", "", "path to a yaml/json/toml config file (overrides CONFIG_FILE)")
	versioninfo.AddFlag(nil)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()
	if err := viper.BindPFlag("config", pflag.Lookup("config")); err != nil {
		panic(err)
	}

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	logger.Info("starting homie2google", zap.String("version", versioninfo.Short()))

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	// one Homie controller per user, shared by its bridge and the fulfillment endpoint
	controllers := map[string]*homie.Controller{}
	homes := map[string]port.Home{}
	for _, user := range cfg.Users {
		if user.Homie == nil {
			continue
		}
		controller := homie.NewController(*user.Homie, logger.With(zap.String("user", user.Id)))
		controllers[user.Id] = controller
		homes[user.Id] = controller
	}

	homeGraphProv, err := homeGraphActorProvider(cfg, logger)
	if err != nil {
		logger.Fatal("homegraph client", zap.Error(err))
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, homeGraphProv, bridgeActorProvider(cfg, controllers, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Fatal("spawning master actor", zap.Error(err))
	}

	server := server.NewServer(*cfg, ctx, pid, homes, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	logger.Info("listening", zap.Uint("port", cfg.Port))
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => HOMIE2GOOGLE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("HOMIE2GOOGLE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("homie2google")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from file
	configFile := viper.GetString("config")
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		slog.Info("Using config", "file", configFile)
		if err := readConfigFile(configFile); err != nil {
			return nil, err
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigFile loads the config file expanding ${VAR} references so secrets
// can stay in the environment.
func readConfigFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	viper.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))
	if err := viper.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(content)))); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func homeGraphActorProvider(cfg *config.Config, logger *zap.Logger) (actor.HomeGraphActorProvider, error) {
	if !cfg.Google.Enabled() {
		return nil, nil
	}
	client, err := homegraph.NewClient(context.Background(), cfg.Google, logger)
	if err != nil {
		return nil, err
	}
	return func() pactor.Actor {
		return adactor.NewHomeGraphActor(client, cfg.Google.ReportTimeout(), logger)
	}, nil
}

func bridgeActorProvider(cfg *config.Config, controllers map[string]*homie.Controller, logger *zap.Logger) actor.BridgeActorProvider {
	return func(user config.UserConfig, homeGraph *pactor.PID) pactor.Actor {
		return actor.NewBridgeActor(user, cfg.Google, controllers[user.Id], homeGraph, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("port", config.DEFAULT_PORT)
	viper.SetDefault("http_log", false)
	viper.SetDefault("google.request_sync_rate_limit_seconds", config.DEFAULT_REQUEST_SYNC_RATE_LIMIT)
	viper.SetDefault("google.report_timeout_millis", config.DEFAULT_REPORT_TIMEOUT_MILLIS)
}

func safePrintConfig(cfg config.Config) {
	slog.Info("Using", "config", cfg.Redacted())
}
