package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rahmatrdn/go-query-profiler/entity"
	"github.com/rahmatrdn/go-query-profiler/internal/config"
	"github.com/rahmatrdn/go-query-profiler/internal/http/handler"
	"github.com/rahmatrdn/go-query-profiler/internal/http/middleware"
	"github.com/rahmatrdn/go-query-profiler/internal/profiler"
	"github.com/rahmatrdn/go-query-profiler/internal/queue"
	chrepo "github.com/rahmatrdn/go-query-profiler/internal/repository/clickhouse"
	sqliterepo "github.com/rahmatrdn/go-query-profiler/internal/repository/sqlite"
	"github.com/rahmatrdn/go-query-profiler/internal/scheduler"
	"github.com/rahmatrdn/go-query-profiler/internal/usecase"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
	if err != nil {
		log.Fatal("open sqlite", zap.Error(err))
	}
	if err := db.AutoMigrate(&entity.ProfileArchive{}); err != nil {
		log.Fatal("migrate archive schema", zap.Error(err))
	}

	var sink profiler.WarningSink
	if cfg.AMQPUrl != "" {
		publisher, err := queue.NewWarningPublisher(cfg.AMQPUrl, cfg.AMQPQueue, log)
		if err != nil {
			log.Fatal("connect amqp", zap.Error(err))
		}
		defer publisher.Close()
		sink = publisher
	}

	var chSink chrepo.ArchiveSink
	if cfg.ClickHouseAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		chSink, err = chrepo.NewArchiveSink(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDatabase)
		cancel()
		if err != nil {
			log.Fatal("connect clickhouse", zap.Error(err))
		}
		defer chSink.Close()
	}

	thresholds := profiler.Thresholds{
		SlowQueryMs:          cfg.SlowQueryMs,
		N1Threshold:          cfg.N1Threshold,
		MaxQueriesPerRequest: cfg.MaxQueriesPerRequest,
	}
	heuristics := profiler.NewHeuristics(thresholds, log, sink)

	var storeOpts []profiler.StoreOption
	if cfg.CaptureStack {
		storeOpts = append(storeOpts, profiler.WithStackCapture(func() string {
			return string(debug.Stack())
		}))
	}
	store := profiler.NewStore(heuristics, storeOpts...)

	analyzer := profiler.NewAnalyzer(thresholds)
	aggregator := profiler.NewAggregator(store, heuristics)
	archiveRepo := sqliterepo.NewProfileArchiveRepository(db)

	profilerUsecase := usecase.NewProfilerUsecase(
		store, heuristics, analyzer, aggregator,
		archiveRepo, cfg.ArchiveMax, chSink, log,
	)

	statsLogger, err := scheduler.NewStatsLogger(aggregator, time.Duration(cfg.StatsIntervalSec)*time.Second, log)
	if err != nil {
		log.Fatal("init stats logger", zap.Error(err))
	}
	statsLogger.Start()
	defer statsLogger.Shutdown()

	app := fiber.New()
	app.Use(middleware.RequestProfiler(profilerUsecase, log))
	handler.NewDiagnosticsHandler(profilerUsecase).Register(app)

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatal("listen", zap.Error(err))
		}
	}()
	log.Info("profilerd started", zap.String("addr", cfg.HTTPAddr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
