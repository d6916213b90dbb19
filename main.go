package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	"visionary-backend/internal/adminclient"
	"visionary-backend/internal/database"
	"visionary-backend/internal/handlers"
	"visionary-backend/internal/hub"
	"visionary-backend/internal/jwt"
	"visionary-backend/internal/keyValue"
	"visionary-backend/internal/models"
	"visionary-backend/internal/validator"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	sessionSweepInterval = 5 * time.Minute
	sessionMaxIdle       = 2 * time.Hour
)

func setupLogger(cfg *models.ConfigFile) (*zap.SugaredLogger, error) {
	level := zapcore.DebugLevel
	if cfg.LogLevel != "" {
		err := level.Set(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	if cfg.LogToFile {
		config.OutputPaths = append(config.OutputPaths, "app.log")
	}
	config.Level = zap.NewAtomicLevelAt(level)
	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func readConfigFile() (*models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return nil, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return nil, err
	}

	fieldErrors, err := validator.Struct(cfg)
	if err != nil {
		return nil, err
	}
	if fieldErrors != nil {
		return nil, fmt.Errorf("invalid config.json: %v", fieldErrors)
	}

	if cfg.ProductName == "" {
		cfg.ProductName = "Visionary AI"
	}

	return &cfg, nil
}

func setupRedis(cfg *models.ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func main() {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer sugar.Sync()

	fmt.Println("Connecting to database...")
	db, err := database.Setup(cfg)
	if err != nil {
		sugar.Fatal(err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if !cfg.SelfContained {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := keyValue.New(sugar, db, redisClient, cfg.SelfContained)

	toastHub := hub.New(sugar, redisClient)
	go func() {
		err := toastHub.Run(ctx)
		if err != nil {
			sugar.Error(err)
		}
	}()

	api := adminclient.NewClient(cfg.ApiBaseURL, cfg.ApiToken, time.Duration(cfg.ApiTimeoutSeconds)*time.Second)

	isHttps := cfg.TlsCert != "" && cfg.TlsKey != ""

	var httpProtocol string
	if isHttps {
		httpProtocol = "https"
	} else {
		httpProtocol = "http"
	}

	server := handlers.New(sugar, cfg, isHttps, store, api, toastHub, jwt.NewIssuer(cfg.JwtSecret, isHttps))
	defer server.Close()
	go server.RunSessionSweeper(ctx, sessionSweepInterval, sessionMaxIdle)

	fmt.Printf("Server is running on %s://%s:%s\n", httpProtocol, cfg.Address, cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sugar.Info("Shutting down")
	case err := <-errCh:
		sugar.Error(err)
	}
}
