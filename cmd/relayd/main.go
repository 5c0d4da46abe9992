// relayd is the speech-translation relay daemon. It wires the translation
// engine registry, the streaming recognizer, the cached synthesizer, and the
// retention sweeps, and exposes Prometheus metrics.
//
// Usage:
//
//	relayd serve                      # start the relay
//	relayd serve --config relay.yaml  # with a config file
//	relayd version                    # show version information
//	relayd health                     # probe a running relay
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dawei41468/translator-sub001/cleanup"
	"github.com/dawei41468/translator-sub001/config"
	"github.com/dawei41468/translator-sub001/internal/metrics"
	"github.com/dawei41468/translator-sub001/internal/store"
	"github.com/dawei41468/translator-sub001/speech"
	"github.com/dawei41468/translator-sub001/translation"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting relayd",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mx := metrics.NewCollector("relay", registry, logger)

	// The room store degrades gracefully: without it the relay still
	// translates and synthesizes, only room eviction is disabled.
	var rooms *store.RoomStore
	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		logger.Warn("database not available, room eviction disabled", zap.Error(err))
	} else {
		rooms, err = store.NewRoomStore(db, logger)
		if err == nil {
			err = rooms.Migrate()
		}
		if err != nil {
			logger.Warn("room store unavailable, room eviction disabled", zap.Error(err))
			rooms = nil
		}
	}

	var redisClient *redis.Client
	if cfg.Translation.Cache.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Translation.Cache.Addr,
			Password: cfg.Translation.Cache.Password,
			DB:       cfg.Translation.Cache.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable, translation cache runs local-only", zap.Error(err))
		}
		cancel()
	}

	engines := buildRegistry(cfg, redisClient, logger, mx)

	recognizer := speech.NewRecognizer(speech.RecognizerConfig{
		APIKey:  cfg.Speech.STT.APIKey,
		BaseURL: cfg.Speech.STT.BaseURL,
		Model:   cfg.Speech.STT.Model,
	}, logger, mx)

	synthesizer := speech.NewSynthesizer(speech.SynthesizerConfig{
		APIKey:   cfg.Speech.TTS.APIKey,
		BaseURL:  cfg.Speech.TTS.BaseURL,
		Voice:    cfg.Speech.TTS.Voice,
		Language: cfg.Speech.TTS.Language,
		CacheDir: cfg.Speech.TTS.CacheDir,
	}, logger, mx)

	sweeps := cleanup.NewService(cleanup.Config{
		RoomRetention:  cfg.Cleanup.RoomRetention,
		RoomInterval:   cfg.Cleanup.RoomInterval,
		CacheRetention: cfg.Cleanup.CacheRetention,
		CacheInterval:  cfg.Cleanup.CacheInterval,
		CacheDir:       cfg.Speech.TTS.CacheDir,
	}, roomStoreOrNil(rooms), logger, mx)
	sweeps.Start()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	for _, info := range engines.AvailableEngines() {
		logger.Info("translation engine ready",
			zap.String("id", info.ID), zap.String("name", info.Name))
	}
	logger.Info("relayd started",
		zap.Bool("recognizer_available", recognizer.Available()),
		zap.Bool("synthesizer_available", synthesizer.Available()),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sweeps.Stop()
	if metricsSrv != nil {
		metricsSrv.Shutdown(shutdownCtx)
	}
	if err := synthesizer.Close(shutdownCtx); err != nil {
		logger.Warn("synthesis cache writes not fully drained", zap.Error(err))
	}
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("relayd stopped")
}

// buildRegistry constructs the engine registry from config. Engines register
// whether or not they hold credentials; availability is evaluated per
// request, so credentials added before a restart take effect on resolution.
func buildRegistry(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger, mx *metrics.Collector) *translation.Registry {
	registry := translation.NewRegistry(cfg.Translation.DefaultEngine, logger, mx)

	registry.Register(translation.EngineIDCloud, translation.NewGoogleEngine(translation.GoogleConfig{
		APIKey:    cfg.Translation.Google.APIKey,
		ProjectID: cfg.Translation.Google.ProjectID,
		Location:  cfg.Translation.Google.Location,
		BaseURL:   cfg.Translation.Google.BaseURL,
	}, logger, mx))

	cache := translation.NewResponseCache(translation.ResponseCacheConfig{
		Capacity: cfg.Translation.Cache.Capacity,
		TTL:      cfg.Translation.Cache.TTL,
		Redis:    redisClient,
		RedisTTL: cfg.Translation.Cache.RedisTTL,
	}, logger)

	registry.Register(translation.EngineIDModel, translation.NewModelEngine(translation.ModelConfig{
		APIKey:  cfg.Translation.Model.APIKey,
		BaseURL: cfg.Translation.Model.BaseURL,
		Model:   cfg.Translation.Model.Model,
		Timeout: cfg.Translation.Model.Timeout,
	}, cache, logger, mx))

	return registry
}

// roomStoreOrNil keeps a typed nil *RoomStore from leaking into the
// interface-valued sweep dependency.
func roomStoreOrNil(rooms *store.RoomStore) cleanup.RoomStore {
	if rooms == nil {
		return nil
	}
	return rooms
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:9090", "Metrics address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/metrics")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func printVersion() {
	fmt.Printf("relayd %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`relayd - speech-translation relay daemon

Usage:
  relayd <command> [options]

Commands:
  serve     Start the relay
  version   Show version information
  health    Probe a running relay
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Examples:
  relayd serve
  relayd serve --config /etc/relayd/relay.yaml
  relayd health --addr http://localhost:9090
  relayd version`)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
