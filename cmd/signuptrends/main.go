package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rewired-gh/signuptrends/internal/config"
	"github.com/rewired-gh/signuptrends/internal/dashboard"
	"github.com/rewired-gh/signuptrends/internal/logger"
	"github.com/rewired-gh/signuptrends/internal/models"
	"github.com/rewired-gh/signuptrends/internal/storage"
	"github.com/rewired-gh/signuptrends/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envPath    = flag.String("env", ".env", "Optional dotenv file loaded before the configuration")
	outputPath = flag.String("output", "", "Override output.file_path (use - for stdout)")
	nowFlag    = flag.String("now", "", "Reference instant in RFC3339 (default: current time)")
)

func main() {
	flag.Parse()

	// Load .env before config so SIGNUP_TRENDS_* overrides apply
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envPath, err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	switch *outputPath {
	case "":
	case "-":
		cfg.Output.FilePath = ""
	default:
		cfg.Output.FilePath = *outputPath
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup logging with level support
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	now := time.Now()
	if *nowFlag != "" {
		now, err = time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			logger.Fatal("Invalid -now value %q: %v", *nowFlag, err)
		}
	}

	pipeline, err := dashboard.NewFromConfig(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize pipeline: %v", err)
	}
	writer := storage.New(cfg.Output.FilePath, cfg.Output.FilePermissions, cfg.Output.DirPermissions)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram digest disabled")
	}

	// Abandon in-flight loads on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, pipeline, writer, telegramClient, now); err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, pipeline *dashboard.Pipeline, writer *storage.Writer, telegramClient *telegram.Client, now time.Time) error {
	logger.Debug("Building dashboard (reference time %s)", now.Format(time.RFC3339))
	d := pipeline.Build(ctx, now)

	if err := ctx.Err(); err != nil {
		logger.Info("Interrupted, dashboard not written")
		return nil
	}

	if err := writer.Save(d); err != nil {
		return err
	}
	logger.Info("Dashboard written to %s", writer.Destination())

	if telegramClient != nil {
		if err := telegramClient.SendDigest(ctx, d); err != nil {
			logger.Warn("Failed to send Telegram digest: %v", err)
		} else {
			logger.Info("Sent Telegram digest")
		}
	}

	if d.Status == models.StatusUnavailable {
		logger.Warn("No source could be loaded; dashboard is empty")
	}
	return nil
}
