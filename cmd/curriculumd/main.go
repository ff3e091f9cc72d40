// Command curriculumd wires the grounded-generation pipeline's components
// (C1-C10) into a single HTTP service: the ingestion agents and
// orchestration graph on the cold-start path, the read-only production
// harness on the warm path, and the admin review loop for ingestion jobs
// that land on human_alert.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/curricle-systems/core/pkg/admin"
	"github.com/curricle-systems/core/pkg/artifacts"
	"github.com/curricle-systems/core/pkg/auth"
	"github.com/curricle-systems/core/pkg/config"
	"github.com/curricle-systems/core/pkg/database"
	"github.com/curricle-systems/core/pkg/governance"
	"github.com/curricle-systems/core/pkg/grounding"
	"github.com/curricle-systems/core/pkg/harness"
	"github.com/curricle-systems/core/pkg/ingestion"
	"github.com/curricle-systems/core/pkg/kernel"
	"github.com/curricle-systems/core/pkg/llm"
	"github.com/curricle-systems/core/pkg/metering"
	"github.com/curricle-systems/core/pkg/modelclient"
	"github.com/curricle-systems/core/pkg/observability"
	"github.com/curricle-systems/core/pkg/orchestrator"
	"github.com/curricle-systems/core/pkg/shadow"
	"github.com/curricle-systems/core/pkg/store"
	"github.com/curricle-systems/core/pkg/validate"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, observability.DefaultConfig())
	if err != nil {
		logger.Error("observability init failed, continuing uninstrumented", "error", err)
	}
	if obs != nil {
		defer func() { _ = obs.Shutdown(context.Background()) }()
	}

	writeDialect := dialectFor(cfg.DatabaseURL)
	writeDB, err := sql.Open(writeDialect.DriverName(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("open write database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = writeDB.Close() }()

	if err := database.Migrate(ctx, writeDB); err != nil {
		logger.Error("migrate database", "error", err)
		os.Exit(1)
	}

	readDialect := dialectFor(cfg.ReadOnlyDatabaseURL)
	readDB, err := sql.Open(readDialect.DriverName(), cfg.ReadOnlyDatabaseURL)
	if err != nil {
		logger.Error("open read-only database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = readDB.Close() }()

	vault := database.NewSQLVault(writeDB, writeDialect)
	jobStore := database.NewSQLIngestionJobStore(writeDB, writeDialect)
	readOnly := database.NewReadOnlySession(readDB)

	var meter metering.Meter
	if writeDialect == database.DialectPostgres {
		pgMeter := metering.NewPostgresMeter(writeDB)
		if err := pgMeter.Init(ctx); err != nil {
			logger.Error("init metering schema", "error", err)
			os.Exit(1)
		}
		meter = pgMeter
	} else {
		meter = metering.NewInMemoryMeter()
	}

	model := buildModelClient(cfg, meter)

	schemaRegistry := validate.NewSchemaRegistry()
	if err := orchestrator.RegisterSchemas(schemaRegistry); err != nil {
		logger.Error("register orchestrator schemas", "error", err)
		os.Exit(1)
	}
	if err := ingestion.RegisterSchemas(schemaRegistry); err != nil {
		logger.Error("register ingestion schemas", "error", err)
		os.Exit(1)
	}

	artifactStore, err := artifacts.NewStoreFromEnv(ctx)
	if err != nil {
		logger.Error("init artifact store", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	scout := ingestion.NewScout(ingestion.NewDuckDuckGoSearcher(httpClient))
	gatekeeper := ingestion.NewGatekeeper()
	architect := ingestion.NewArchitect(httpClient, artifactStore, ingestion.NewPDFExtractor(), model, schemaRegistry)
	embedder := ingestion.NewEmbedder(model)

	gov := governance.NewGovernanceEnforcer()
	groundVerifier := grounding.NewVerifier(model)
	breaker := shadow.NewCircuitBreaker(5, 60*time.Second)
	shadowDir := os.Getenv("DATA_DIR")
	if shadowDir == "" {
		shadowDir = "data"
	}
	shadowExec := shadow.NewExecutor(model, breaker, shadow.HallucinationAction(cfg.HallucinationAction), shadowDir, os.Getenv("ENVIRONMENT"))
	shadowExec = shadowExec.WithThresholds(shadow.Thresholds{
		TopicSetDelta:  cfg.ShadowThresholds.TopicSetDelta,
		OrderingDelta:  cfg.ShadowThresholds.OrderingDelta,
		ContentDelta:   cfg.ShadowThresholds.ContentDelta,
		ExtraTopicRate: cfg.ShadowThresholds.ExtraTopicRate,
		OmissionRate:   cfg.ShadowThresholds.OmissionRate,
	})

	productionHarness := harness.New(readOnly, model, gov, groundVerifier, shadowExec)

	edges, err := orchestrator.NewEdgeEngine()
	if err != nil {
		logger.Error("compile orchestration edges", "error", err)
		os.Exit(1)
	}

	deps := &orchestrator.Deps{
		TenantID:    "default",
		Model:       model,
		Schemas:     schemaRegistry,
		Scout:       scout,
		Gatekeeper:  gatekeeper,
		Architect:   architect,
		Embedder:    embedder,
		Vault:       vault,
		Harness:     productionHarness,
		JobRecorder: newJobRecorderAdapter(jobStore),
	}
	graph := orchestrator.NewGraph(deps, edges)

	auditLog := store.NewAuditStore()
	adminSvc := admin.NewService(newAdminJobStoreAdapter(jobStore), auditLog)
	adminHandlers := admin.NewHandlers(adminSvc)

	keySet, err := auth.NewInMemoryKeySet()
	if err != nil {
		logger.Error("init auth keyset", "error", err)
		os.Exit(1)
	}
	validator := auth.NewJWTValidator(keySet)
	authMiddleware := auth.NewMiddleware(validator)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readiness", func(w http.ResponseWriter, r *http.Request) {
		if err := writeDB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/api/requests", requestHandler(graph))
	mux.HandleFunc("/api/generate", generateHandler(productionHarness, vault))
	mux.HandleFunc("/api/admin/pending_jobs", adminHandlers.ListPendingJobs)
	mux.HandleFunc("/api/admin/approve", adminHandlers.Approve)
	mux.HandleFunc("/api/admin/reject", adminHandlers.Reject)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           authMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("curriculumd listening", "port", cfg.Port, "ai_provider", cfg.AIProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func dialectFor(dsn string) database.Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return database.DialectPostgres
	}
	return database.DialectSQLite
}

func logLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildModelClient assembles the rate-limited fallback-chain client (C3)
// from cfg.AIProvider: a fast/cheap model and a smart/accurate model per
// task kind, both reached through the OpenAI-compatible wire format either
// Gemini or OpenRouter exposes.
func buildModelClient(cfg *config.Config, meter metering.Meter) *modelclient.Client {
	var fastModel, smartModel llm.Client
	switch cfg.AIProvider {
	case config.ProviderOpenRouter:
		fastModel = llm.NewOpenAICompatibleClient(cfg.OpenRouterAPIKey, "google/gemini-2.0-flash-001", "https://openrouter.ai/api/v1/chat/completions")
		smartModel = llm.NewOpenAICompatibleClient(cfg.OpenRouterAPIKey, "anthropic/claude-3.7-sonnet", "https://openrouter.ai/api/v1/chat/completions")
	default:
		fastModel = llm.NewOpenAICompatibleClient(cfg.GoogleAPIKey, "gemini-2.0-flash", "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions")
		smartModel = llm.NewOpenAICompatibleClient(cfg.GoogleAPIKey, "gemini-2.5-pro", "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions")
	}

	fastChain := modelclient.NewChain(
		modelclient.ProviderSpec{ModelID: "fast-primary", Client: fastModel, Tier: modelclient.TierFast},
		modelclient.ProviderSpec{ModelID: "smart-fallback", Client: smartModel, Tier: modelclient.TierSmart},
	)
	smartChain := modelclient.NewChain(
		modelclient.ProviderSpec{ModelID: "smart-primary", Client: smartModel, Tier: modelclient.TierSmart},
		modelclient.ProviderSpec{ModelID: "fast-fallback", Client: fastModel, Tier: modelclient.TierFast},
	)

	registry := modelclient.NewRegistry(map[modelclient.TaskKind]*modelclient.Chain{
		modelclient.TaskStandard:   fastChain,
		modelclient.TaskFormatting: fastChain,
		modelclient.TaskCreative:   smartChain,
		modelclient.TaskReasoning:  smartChain,
	})

	limiterStore := buildLimiterStore()
	limiter := modelclient.NewLimiter(limiterStore, map[modelclient.ModelTier]modelclient.TierLimits{
		modelclient.TierFast:  {RPM: 600, DailyCallCap: 20000},
		modelclient.TierSmart: {RPM: 120, DailyCallCap: 5000},
		modelclient.TierSafe:  {RPM: 60, DailyCallCap: 2000},
	})

	embedder := store.NewOpenAIEmbedder(cfg.GoogleAPIKey)
	return modelclient.NewClient(registry, limiter, embedder, meter)
}

func buildLimiterStore() kernel.LimiterStore {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return kernel.NewRedisLimiterStore(addr, os.Getenv("REDIS_PASSWORD"), 0)
	}
	return kernel.NewInMemoryLimiterStore()
}
