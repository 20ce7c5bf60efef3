package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"tradegate/internal/analysis"
	"tradegate/internal/bitget"
	"tradegate/internal/cache"
	"tradegate/internal/config"
	"tradegate/internal/db"
	mcpserver "tradegate/internal/mcp"
	"tradegate/internal/news"
	"tradegate/internal/notify"
	"tradegate/internal/repository"
	"tradegate/internal/service"
	"tradegate/pkg/tracing"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newExchangeFunc  = func(cfg *config.Config, tracer trace.Tracer) *bitget.Client {
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
	newJournalFunc      = repository.NewJournalRepository
	newNotifierFunc     = notify.FromEnv
	newMarketSvcFunc    = service.NewMarketService
	newOrderSvcFunc     = service.NewOrderService
	newPositionSvcFunc  = service.NewPositionService
	newLeverageSvcFunc  = service.NewLeverageService
	newAnalysisFunc     = analysis.NewEngine
	newNewsFunc         = func(tracer trace.Tracer) *news.Aggregator { return news.NewAggregator(news.WithTracer(tracer)) }
	newMCPServerFunc    = mcpserver.NewServer
	newMCPHandlerFunc   = mcpserver.NewHTTPTransportHandler
	runStdioFunc        = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	pool := initPostgresFunc(ctx)
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
	var journal *repository.JournalRepository
	if pool != nil {
		journal = newJournalFunc(pool, tracer)
		if err := journal.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run journal migrations: %v", err)
		}
	}
	notifier := newNotifierFunc()

	marketSvc := newMarketSvcFunc(tracer, exchange, cache.NewMarketCache(rdb))
	orderSvc := newOrderSvcFunc(tracer, exchange, journal, notifier)
	positionSvc := newPositionSvcFunc(tracer, exchange, exchange, journal, notifier)
	leverageSvc := newLeverageSvcFunc(tracer, exchange)

	mcpSrv := newMCPServerFunc(tracer, mcpserver.Deps{
		Market:   marketSvc,
		Orders:   orderSvc,
		Closer:   positionSvc,
		Leverage: leverageSvc,
		Analyzer: newAnalysisFunc(),
		News:     newNewsFunc(tracer),
	}, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})

	transport := strings.ToLower(strings.TrimSpace(cfg.MCPTransport))
	switch transport {
	case "", "stdio":
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			log.Fatalf("mcp stdio server failed: %v", err)
		}
	case "http":
		if err := runHTTPMode(ctx, cancel, cfg, mcpSrv); err != nil {
			log.Fatalf("mcp http server failed: %v", err)
		}
	default:
		log.Fatalf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server) error {
	if strings.TrimSpace(cfg.MCPAuthToken) == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	handler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    cfg.MCPMaxBodyBytes,
	})

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Printf("mcp http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
