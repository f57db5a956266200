package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"insurance-etl/internal/config"
	"insurance-etl/internal/database/minio"
	"insurance-etl/internal/database/postgres"
	"insurance-etl/internal/database/redis"
	"insurance-etl/internal/event"
	"insurance-etl/internal/handlers"
	"insurance-etl/internal/repository"
	"insurance-etl/internal/services"
	"insurance-etl/internal/worker"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/insurance", "log", "etl_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	if _, err := os.Stat(logFile); err == nil {
		absPath, err := filepath.Abs(logFile)
		if err != nil {
			fmt.Printf("Failed to get absolute path of log file: %v\n", err)
		} else {
			fmt.Printf("Log file exists at absolute path: %s\n", absPath)
		}
	} else if os.IsNotExist(err) {
		fmt.Println("Log file does not exist (it will be created)")
	} else {
		fmt.Printf("Error checking log file existence: %v\n", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()
	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.PostgresCfg.Host, cfg.PostgresCfg.Port, cfg.PostgresCfg.Username, cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Fatalf("Error connecting to MinIO: %v", err)
	}
	defer minioClient.Close()

	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Fatalf("Error connecting to RabbitMQ: %v", err)
	}
	defer rabbitConn.Close()

	// repositories
	dimensionRepository := repository.NewDimensionRepository(db)
	factRepository := repository.NewFactRepository(db)
	ruleRepository := repository.NewRuleRepository(db)

	// services
	runStore := services.NewRunStore(redisClient)
	warehouseLoader := services.NewWarehouseLoader(dimensionRepository, factRepository, cfg.PipelineCfg.StrictEnums)
	runPublisher := event.NewRunPublisher(rabbitConn)
	pipelineService := services.NewPipelineService(
		cfg.PipelineCfg,
		warehouseLoader,
		ruleRepository,
		factRepository,
		runStore,
		minioClient,
		runPublisher,
	)

	// worker pool for queued pipeline runs
	pool := worker.NewWorkingPool(1, 8)
	poolCtx, poolCancel := context.WithCancel(context.Background())
	var poolWg sync.WaitGroup
	poolWg.Add(1)
	go pool.Start(poolCtx, &poolWg)

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Insurance ETL service is healthy")
	})

	pipelineHandler := handlers.NewPipelineHandler(pipelineService, pool)
	pipelineHandler.Register(app)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutting down server...")
	poolCancel()
	poolWg.Wait()
}
