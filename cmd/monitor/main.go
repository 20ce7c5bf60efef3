package main

import (
	"context"
	"log"
	"os"
	"time"

	"tradegate/internal/bitget"
	"tradegate/internal/cache"
	"tradegate/internal/config"
	"tradegate/internal/service"
	"tradegate/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
	noop "go.opentelemetry.io/otel/trace/noop"
)

var (
	loadEnvFunc     = godotenv.Load
	loadConfigFunc  = config.Load
	initRedisFunc   = cache.InitRedis
	newExchangeFunc = func(cfg *config.Config, tracer trace.Tracer) *bitget.Client {
		opts := []bitget.Option{
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
	newMarketSvcFunc = service.NewMarketService
	runProgramFunc   = func(model tea.Model) error {
		_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	}
)

// The monitor is a terminal dashboard over the account and open orders.
// It exports no spans: a short-lived interactive tool has nothing useful
// to trace, so it runs with a no-op tracer.
func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracer := noop.NewTracerProvider().Tracer("tradegate-monitor")

	os.Setenv("REDIS_URL", cfg.RedisURL)
	rdb := initRedisFunc(ctx)

	exchange := newExchangeFunc(cfg, tracer)
	marketSvc := newMarketSvcFunc(tracer, exchange, cache.NewMarketCache(rdb))

	app := tui.NewAppModel(tui.Services{Market: marketSvc})
	if err := runProgramFunc(app); err != nil {
		log.Fatalf("monitor exited with error: %v", err)
	}
}
