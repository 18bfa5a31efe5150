package ai

import (
	"github.com/nimbusdrive/nimbus-server/internal/config"
	"go.uber.org/zap"
)

const (
	openAIEndpoint    = "https://api.openai.com/v1"
	dashScopeEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// NewFromConfig selects the provider at startup. Anything without an API key
// or with an unknown provider name degrades to the heuristic fallback.
func NewFromConfig(cfg config.AIConfig, logger *zap.Logger) Analyzer {
	if cfg.APIKey == "" {
		logger.Warn("no AI API key configured, using heuristic fallback analyzer")
		return NewFallback()
	}

	endpoint := cfg.Endpoint
	switch cfg.Provider {
	case "openai":
		if endpoint == "" {
			endpoint = openAIEndpoint
		}
	case "dashscope":
		if endpoint == "" {
			endpoint = dashScopeEndpoint
		}
	case "azure":
		if endpoint == "" {
			logger.Warn("azure provider needs AI_ENDPOINT, using heuristic fallback analyzer")
			return NewFallback()
		}
	default:
		logger.Warn("unknown AI provider, using heuristic fallback analyzer",
			zap.String("provider", cfg.Provider))
		return NewFallback()
	}

	logger.Info("AI analyzer configured",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model))
	return NewClient(endpoint, cfg.APIKey, cfg.Model, cfg.Temperature, logger)
}
