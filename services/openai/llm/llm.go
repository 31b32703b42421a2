package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"convokit/core"

	"github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = `You are an AI-powered legal assistant specialized in Indian criminal law.
Analyze the user's situation or the legal section they ask about and answer in plain language.
If the question does not carry much information, consider the previous conversation.`

// Config holds the configuration for OpenAI service
type Config struct {
	APIKey       string  `json:"api_key"`
	BaseURL      string  `json:"base_url"`
	Model        string  `json:"model"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float32 `json:"temperature"`
	Streaming    bool    `json:"streaming"`
	SystemPrompt string  `json:"system_prompt"`
	// HistoryTurns is how many earlier exchanges are replayed with each request.
	HistoryTurns int `json:"history_turns"`
}

func DefaultConfig() Config {
	return Config{
		Model:        openai.GPT4oMini,
		MaxTokens:    1024,
		Temperature:  0.3,
		SystemPrompt: defaultSystemPrompt,
		HistoryTurns: 5,
	}
}

type turn struct {
	user      string
	assistant string
}

// OpenAIAssistant answers messages with OpenAI chat completions. It keeps a short rolling history
// so follow-up questions have context.
type OpenAIAssistant struct {
	client *openai.Client
	config Config
	logger *core.Logger

	mu      sync.Mutex
	history []turn
}

// NewOpenAIAssistant creates a new instance of OpenAIAssistant
func NewOpenAIAssistant(config Config, logger *core.Logger) *OpenAIAssistant {
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaults.SystemPrompt
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIAssistant{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: logger.With(map[string]any{"service": "openai_llm"}),
	}
}

// Init checks the key against the models endpoint.
func (s *OpenAIAssistant) Init(ctx context.Context) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("failed to connect to OpenAI: %w", err)
	}
	return nil
}

func (s *OpenAIAssistant) Cleanup() error {
	return s.Reset()
}

// Reset forgets the conversation history.
func (s *OpenAIAssistant) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	return nil
}

// Respond runs one completion for message, asking for the answer in language.
func (s *OpenAIAssistant) Respond(ctx context.Context, message string, language core.Language) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    s.buildMessages(message, language),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		Stream:      s.config.Streaming,
	}

	var (
		reply string
		err   error
	)
	if s.config.Streaming {
		reply, err = s.runStreamingCompletion(ctx, req)
	} else {
		reply, err = s.runNonStreamingCompletion(ctx, req)
	}
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("OpenAI returned an empty completion")
	}

	s.remember(message, reply)
	return reply, nil
}

func (s *OpenAIAssistant) buildMessages(message string, language core.Language) []openai.ChatCompletionMessage {
	s.mu.Lock()
	history := append([]turn(nil), s.history...)
	s.mu.Unlock()

	messages := make([]openai.ChatCompletionMessage, 0, 2+2*len(history))
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: fmt.Sprintf("%s\n\nPlease provide your response in %s.", s.config.SystemPrompt, language),
	})
	for _, t := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.user},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.assistant},
		)
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: message})
}

func (s *OpenAIAssistant) remember(user, assistant string) {
	if s.config.HistoryTurns <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turn{user: user, assistant: assistant})
	if extra := len(s.history) - s.config.HistoryTurns; extra > 0 {
		s.history = s.history[extra:]
	}
}

// runStreamingCompletion handles streaming responses
func (s *OpenAIAssistant) runStreamingCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create completion stream: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("completion stream: %w", err)
		}
		if len(response.Choices) > 0 {
			b.WriteString(response.Choices[0].Delta.Content)
		}
	}
}

// runNonStreamingCompletion handles non-streaming responses
func (s *OpenAIAssistant) runNonStreamingCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	s.logger.Debug("completion finished", "tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}
