package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"tradegate/internal/bitget"
	"tradegate/internal/cache"
	"tradegate/internal/config"
	"tradegate/internal/handler"
	"tradegate/internal/service"
	"tradegate/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc     = godotenv.Load
	loadConfigFunc  = config.Load
	initRedisFunc   = cache.InitRedis
	initTracerFunc  = tracing.InitTracer
	newExchangeFunc = func(cfg *config.Config, tracer trace.Tracer) *bitget.Client {
		opts := []bitget.Option{
			bitget.WithTracer(tracer),
			bitget.WithTimeout(time.Duration(cfg.ExchangeTimeoutSecs) * time.Second),
			bitget.WithRetries(cfg.ExchangeMaxRetries),
		}
		if cfg.BitgetBaseURL != "" {
			opts = append(opts, bitget.WithBaseURL(cfg.BitgetBaseURL))
		}
		return bitget.NewClient(bitget.Credentials{
			APIKey:     cfg.BitgetAPIKey,
			Secret:     cfg.BitgetSecret,
			Passphrase: cfg.BitgetPassphrase,
		}, opts...)
	}
	newMarketSvcFunc       = service.NewMarketService
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("REDIS_URL", cfg.RedisURL)
	rdb := initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	exchange := newExchangeFunc(cfg, tracer)
	marketSvc := newMarketSvcFunc(tracer, exchange, cache.NewMarketCache(rdb))

	h := newHandlerFunc(tracer, marketSvc)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("tradegate"))
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
