// Command serve runs the llmgate web app: a chat page, a model admin page
// and a JSON API in front of the configured providers.
//
// Configuration comes from llmgate.yaml (or LLMGATE_CONFIG), a .env file
// and the environment:
//
//	GATEWAY_BASE_URL      - any-llm gateway (default: http://localhost:8000)
//	GATEWAY_MASTER_KEY    - gateway master key, required in gateway mode
//	GATEWAY_USER_ID       - user charged for web requests (default: user-123)
//	LLMGATE_CHAT_BACKEND  - gateway or direct (default: gateway)
//	LLMGATE_PORT          - HTTP port (default: 8080)
//	LLMGATE_ADMIN_KEY     - bearer token guarding /api/admin (open when unset)
//	LLMGATE_MODELS_FILE   - model list (default: models.json)
//	LLMGATE_LEDGER        - local usage database (default: llmgate.db)
//
// Usage:
//
//	go run ./cmd/serve
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spetersoncode/llmgate/catalog"
	"github.com/spetersoncode/llmgate/client"
	"github.com/spetersoncode/llmgate/discovery"
	"github.com/spetersoncode/llmgate/gateway"
	"github.com/spetersoncode/llmgate/internal/config"
	"github.com/spetersoncode/llmgate/internal/ledger"
	"github.com/spetersoncode/llmgate/internal/observability"
	"github.com/spetersoncode/llmgate/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("LLMGATE_CONFIG"))
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan client.Event, 256)
	go observability.RecordClientEvents(events)

	clientCfg := cfg.ClientConfig()
	clientCfg.Events = events
	var opts []client.ClientOption
	if cfg.UseGateway() {
		if cfg.Gateway.MasterKey == "" {
			logger.Warn("GATEWAY_MASTER_KEY not set, chat and usage requests will fail")
		}
		opts = append(opts, client.ViaGateway())
	}
	chat := client.New(clientCfg, opts...)

	models, err := catalog.Open(cfg.Storage.ModelsFile, catalog.DefaultWebModels())
	if err != nil {
		return err
	}

	l, err := ledger.Open(cfg.Storage.LedgerPath)
	if err != nil {
		return err
	}
	defer l.Close()

	if cfg.Server.AdminKey == "" {
		logger.Info("LLMGATE_ADMIN_KEY not set, admin API is unauthenticated")
	}
	logger.Info("starting llmgate",
		"backend", cfg.Server.ChatBackend,
		"gateway", cfg.Gateway.BaseURL,
		"models_file", models.Path(),
		"ledger", cfg.Storage.LedgerPath,
	)

	srv := server.New(cfg, server.Deps{
		Chat:      chat,
		Usage:     gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.MasterKey),
		Catalog:   models,
		Discovery: discovery.NewDefaultService(ctx, cfg.DiscoveryConfig(), logger),
		Ledger:    l,
		Logger:    logger,
	})
	return srv.Run(ctx)
}
