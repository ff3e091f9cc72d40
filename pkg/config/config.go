package config

import (
	"os"
	"strconv"
)

// AIProvider selects which upstream model API pkg/llm talks to.
type AIProvider string

const (
	ProviderGemini     AIProvider = "gemini"
	ProviderOpenRouter AIProvider = "openrouter"
)

// PolicyAction is the shared BLOCK/WARN shape for the grounding and
// hallucination policy knobs (spec §6).
type PolicyAction string

const (
	ActionBlock PolicyAction = "BLOCK"
	ActionWarn  PolicyAction = "WARN"
)

// ShadowThresholds mirrors pkg/shadow.Thresholds so config can be loaded
// without this package importing pkg/shadow (which itself depends on
// pkg/modelclient, which depends back on config indirectly via cmd wiring).
type ShadowThresholds struct {
	TopicSetDelta  float64
	OrderingDelta  float64
	ContentDelta   float64
	ExtraTopicRate float64
	OmissionRate   float64
}

// SLAConfig holds the p95 latency budgets spec §6 enumerates per content
// format, plus the shadow-execution multiplier applied on top of them.
type SLAConfig struct {
	FormattingOnlyMs int
	LessonPlanMs     int
	QuizExamMs       int
	ShadowMultiplier float64
}

// Config holds server configuration.
type Config struct {
	Port          string
	LogLevel      string
	DatabaseURL   string
	LLMServiceURL string
	ShadowMode    bool

	// ReadOnlyDatabaseURL is the read-only role's connection string the
	// production harness (C9) must use for every generate() call.
	ReadOnlyDatabaseURL string

	// AIProvider and credentials (spec §6).
	AIProvider       AIProvider
	GoogleAPIKey     string
	OpenRouterAPIKey string

	// Grounding policy (C6).
	GroundingThreshold float64
	GroundingAction    PolicyAction

	// Hallucination policy (C8).
	HallucinationAction PolicyAction

	ShadowThresholds ShadowThresholds
	SLA              SLAConfig
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to local generic postgres
		dbURL = "postgres://helm@localhost:5433/helm?sslmode=disable"
	}

	llmURL := os.Getenv("LLM_SERVICE_URL")
	if llmURL == "" {
		// Default to LM Studio Local
		llmURL = "http://host.docker.internal:1234/v1/chat/completions"
	}

	shadowMode := os.Getenv("SHADOW_MODE") == "true"

	readOnlyURL := os.Getenv("READONLY_DATABASE_URL")
	if readOnlyURL == "" {
		readOnlyURL = dbURL
	}

	provider := AIProvider(os.Getenv("AI_PROVIDER"))
	if provider != ProviderGemini && provider != ProviderOpenRouter {
		provider = ProviderGemini
	}

	return &Config{
		Port:          port,
		LogLevel:      logLevel,
		DatabaseURL:   dbURL,
		LLMServiceURL: llmURL,
		ShadowMode:    shadowMode,

		ReadOnlyDatabaseURL: readOnlyURL,

		AIProvider:       provider,
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),

		GroundingThreshold: floatEnv("GROUNDING_THRESHOLD", 0.7),
		GroundingAction:    policyEnv("GROUNDING_ACTION", ActionWarn),

		HallucinationAction: policyEnv("HALLUCINATION_ACTION", ActionBlock),

		ShadowThresholds: ShadowThresholds{
			TopicSetDelta:  floatEnv("SHADOW_TOPIC_SET_DELTA", 0.05),
			OrderingDelta:  floatEnv("SHADOW_ORDERING_DELTA", 0.20),
			ContentDelta:   floatEnv("SHADOW_CONTENT_DELTA", 0.10),
			ExtraTopicRate: floatEnv("SHADOW_EXTRA_TOPIC_RATE", 0.01),
			OmissionRate:   floatEnv("SHADOW_OMISSION_RATE", 0.02),
		},

		SLA: SLAConfig{
			FormattingOnlyMs: intEnv("SLA_FORMATTING_ONLY_MS", 300),
			LessonPlanMs:     intEnv("SLA_LESSON_PLAN_MS", 2000),
			QuizExamMs:       intEnv("SLA_QUIZ_EXAM_MS", 5000),
			ShadowMultiplier: floatEnv("SLA_SHADOW_MULTIPLIER", 2.0),
		},
	}
}

func floatEnv(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func policyEnv(key string, fallback PolicyAction) PolicyAction {
	v := PolicyAction(os.Getenv(key))
	if v != ActionBlock && v != ActionWarn {
		return fallback
	}
	return v
}
