package factories

import (
	"convokit/core"
	"convokit/orchestrator"
	openaillm "convokit/services/openai/llm"
)

// AssistantFactoryConfig selects the chat collaborator. Set at most one provider config; with
// none set the backend chat endpoint answers.
// All non-OpenAI providers speak the OpenAI-compatible protocol and are served by the same
// assistant with a custom base URL.
type AssistantFactoryConfig struct {
	OpenAIConfig     *openaillm.Config `json:"openai,omitempty"`
	TogetherConfig   *openaillm.Config `json:"together,omitempty"`
	GroqConfig       *openaillm.Config `json:"groq,omitempty"`
	DeepSeekConfig   *openaillm.Config `json:"deepseek,omitempty"`
	OpenRouterConfig *openaillm.Config `json:"openrouter,omitempty"`
	FireworksConfig  *openaillm.Config `json:"fireworks,omitempty"`
	CerebrasConfig   *openaillm.Config `json:"cerebras,omitempty"`
	XAIConfig        *openaillm.Config `json:"xai,omitempty"`
	MistralConfig    *openaillm.Config `json:"mistral,omitempty"`
	PerplexityConfig *openaillm.Config `json:"perplexity,omitempty"`
}

// Default base URLs for OpenAI-compatible providers.
const (
	togetherBaseURL   = "https://api.together.xyz/v1"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	openrouterBaseURL = "https://openrouter.ai/api/v1"
	fireworksBaseURL  = "https://api.fireworks.ai/inference/v1"
	cerebrasBaseURL   = "https://api.cerebras.ai/v1"
	xaiBaseURL        = "https://api.x.ai/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"
	perplexityBaseURL = "https://api.perplexity.ai"
)

// BuildAssistant constructs the chat collaborator. fallback is returned when no provider is
// configured.
func BuildAssistant(config AssistantFactoryConfig, fallback orchestrator.IAssistant, logger *core.Logger) orchestrator.IAssistant {
	switch {
	case config.OpenAIConfig != nil:
		return openaillm.NewOpenAIAssistant(*config.OpenAIConfig, logger)
	case config.TogetherConfig != nil:
		return buildOpenAICompatible(*config.TogetherConfig, togetherBaseURL, "meta-llama/Llama-3.3-70B-Instruct-Turbo", logger)
	case config.GroqConfig != nil:
		return buildOpenAICompatible(*config.GroqConfig, groqBaseURL, "llama-3.3-70b-versatile", logger)
	case config.DeepSeekConfig != nil:
		return buildOpenAICompatible(*config.DeepSeekConfig, deepseekBaseURL, "deepseek-chat", logger)
	case config.OpenRouterConfig != nil:
		return buildOpenAICompatible(*config.OpenRouterConfig, openrouterBaseURL, "openai/gpt-4o", logger)
	case config.FireworksConfig != nil:
		return buildOpenAICompatible(*config.FireworksConfig, fireworksBaseURL, "accounts/fireworks/models/llama-v3p3-70b-instruct", logger)
	case config.CerebrasConfig != nil:
		return buildOpenAICompatible(*config.CerebrasConfig, cerebrasBaseURL, "llama-3.3-70b", logger)
	case config.XAIConfig != nil:
		return buildOpenAICompatible(*config.XAIConfig, xaiBaseURL, "grok-3", logger)
	case config.MistralConfig != nil:
		return buildOpenAICompatible(*config.MistralConfig, mistralBaseURL, "mistral-large-latest", logger)
	case config.PerplexityConfig != nil:
		return buildOpenAICompatible(*config.PerplexityConfig, perplexityBaseURL, "sonar-pro", logger)
	}
	return fallback
}

// buildOpenAICompatible applies the provider's base URL and model unless the config sets them.
func buildOpenAICompatible(cfg openaillm.Config, defaultBaseURL, defaultModel string, logger *core.Logger) *openaillm.OpenAIAssistant {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return openaillm.NewOpenAIAssistant(cfg, logger)
}

func injectAssistantKeys(c *AssistantFactoryConfig, keys APIKeys) {
	for _, p := range []struct {
		cfg *openaillm.Config
		key string
	}{
		{c.OpenAIConfig, keys.OpenAI},
		{c.TogetherConfig, keys.Together},
		{c.GroqConfig, keys.Groq},
		{c.DeepSeekConfig, keys.DeepSeek},
		{c.OpenRouterConfig, keys.OpenRouter},
		{c.FireworksConfig, keys.Fireworks},
		{c.CerebrasConfig, keys.Cerebras},
		{c.XAIConfig, keys.XAI},
		{c.MistralConfig, keys.Mistral},
		{c.PerplexityConfig, keys.Perplexity},
	} {
		if p.cfg != nil && p.cfg.APIKey == "" {
			p.cfg.APIKey = p.key
		}
	}
}
