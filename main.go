package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	_ "github.com/dbscribe/dbscribe/pkg/adapters/datasource/mssql"
	_ "github.com/dbscribe/dbscribe/pkg/adapters/datasource/postgres"
	"github.com/dbscribe/dbscribe/pkg/config"
	"github.com/dbscribe/dbscribe/pkg/handlers"
	"github.com/dbscribe/dbscribe/pkg/llm"
	"github.com/dbscribe/dbscribe/pkg/middleware"
	"github.com/dbscribe/dbscribe/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("summarizer_model", cfg.AI.Summarizer.Model),
		zap.String("coder_model", cfg.AI.Coder.Model),
		zap.Strings("adapters", adapterTypes()))

	router, err := llm.NewPersonaRouter(
		&llm.Config{
			Endpoint: cfg.AI.Summarizer.BaseURL,
			Model:    cfg.AI.Summarizer.Model,
			APIKey:   cfg.AI.APIKey,
			Timeout:  cfg.AI.RequestTimeout(),
		},
		&llm.Config{
			Endpoint: cfg.AI.Coder.BaseURL,
			Model:    cfg.AI.Coder.Model,
			APIKey:   cfg.AI.APIKey,
			Timeout:  cfg.AI.RequestTimeout(),
		},
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to create model router", zap.Error(err))
	}

	manager := datasource.NewManager(datasource.ManagerConfig{
		TTLMinutes:     cfg.Datasource.ConnectionTTLMinutes,
		PoolMaxConns:   cfg.Datasource.PoolMaxConns,
		ConnectTimeout: cfg.Datasource.ConnectTimeout(),
	}, logger)
	defer manager.Close()

	analyzer := services.NewAnalyzer(router, logger)
	cache := services.NewAnalysisCache(analyzer, cfg.Analysis.ComputeTimeout(), logger)
	agent := services.NewSQLAgent(router, cfg.Agent, logger)
	dispatcher := services.NewChatDispatcher(cache, agent, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewConnectHandler(manager, logger).RegisterRoutes(mux)
	handlers.NewAnalyzeHandler(manager, cache, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(manager, dispatcher, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting dbscribe",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func adapterTypes() []string {
	infos := datasource.RegisteredAdapters()
	types := make([]string, len(infos))
	for i, info := range infos {
		types[i] = info.Type
	}
	return types
}
