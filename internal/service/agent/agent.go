// Package agent is the chat-completion transport. It speaks the OpenAI wire
// protocol to DeepSeek by default, or to Azure OpenAI when an Azure endpoint
// is configured. API keys are passed per call so generator, critic and
// collaborator traffic can use separate credentials.
package agent

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://api.deepseek.com/v1"
	DefaultModel   = "deepseek-chat"
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrEmptyChoices is returned when the upstream answers without any choice.
	ErrEmptyChoices = errors.New("empty response choices")
	// ErrMissingAPIKey is returned when a call is made without a key.
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrStreamStopped is returned when the stream handler asks to stop.
	ErrStreamStopped = errors.New("stream stopped by handler")
)

// Config holds the transport configuration.
// Values can be left empty to fall back to environment variables:
//
//	LLM_BASE_URL, LLM_MODEL, LLM_TIMEOUT_SECONDS, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT
type Config struct {
	BaseURL       string
	Model         string
	AzureEndpoint string // when set, requests go to Azure OpenAI
	Deployment    string // Azure only; if empty uses Model
	Timeout       time.Duration
}

// LoadEnv fills empty fields from environment variables.
func (c *Config) LoadEnv() {
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv("LLM_BASE_URL")
	}
	if c.Model == "" {
		c.Model = os.Getenv("LLM_MODEL")
	}
	if c.AzureEndpoint == "" {
		c.AzureEndpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
	}
	if c.Deployment == "" {
		c.Deployment = os.Getenv("AZURE_OPENAI_DEPLOYMENT")
	}
	if c.Timeout == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS"))); err == nil && n > 0 {
			c.Timeout = time.Duration(n) * time.Second
		}
	}
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Deployment == "" {
		c.Deployment = c.Model
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Azure reports whether requests target Azure OpenAI.
func (c Config) Azure() bool { return c.AzureEndpoint != "" }

// Message roles.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatStream is the subset of *openai.ChatCompletionStream the agent reads.
type chatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// oaiClient is the subset of the go-openai client the agent uses.
type oaiClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (chatStream, error)
}

type sdkClient struct{ c *openai.Client }

func (s sdkClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return s.c.CreateChatCompletion(ctx, req)
}

func (s sdkClient) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (chatStream, error) {
	return s.c.CreateChatCompletionStream(ctx, req)
}

// Agent is a lightweight wrapper around the OpenAI client. It keeps one
// client per API key.
type Agent struct {
	cfg       Config
	newClient func(apiKey string) oaiClient

	mu      sync.Mutex
	clients map[string]oaiClient
}

// GetConfig returns a copy of the agent configuration (read-only for caller).
func (a *Agent) GetConfig() Config { return a.cfg }

// New creates a new Agent from a resolved config. Empty fields take defaults.
func New(cfg Config) *Agent {
	cfg.applyDefaults()
	a := &Agent{cfg: cfg, clients: make(map[string]oaiClient)}
	a.newClient = func(apiKey string) oaiClient {
		return sdkClient{c: openai.NewClientWithConfig(clientConfig(a.cfg, apiKey))}
	}
	return a
}

func clientConfig(cfg Config, apiKey string) openai.ClientConfig {
	if !cfg.Azure() {
		oaiCfg := openai.DefaultConfig(apiKey)
		oaiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		return oaiCfg
	}
	oaiCfg := openai.DefaultAzureConfig(apiKey, cfg.AzureEndpoint)
	// Map logical model -> deployment
	oaiCfg.AzureModelMapperFunc = func(model string) string {
		if model == cfg.Model {
			return cfg.Deployment
		}
		// fallback: echo original (allows direct deployment usage)
		return model
	}
	return oaiCfg
}

// Option is a functional option to modify agent configuration before initialization.
type Option func(*Config)

// WithBaseURL overrides the OpenAI-compatible endpoint.
func WithBaseURL(v string) Option { return func(c *Config) { c.BaseURL = v } }

// WithAzureEndpoint switches the agent to Azure OpenAI.
func WithAzureEndpoint(v string) Option { return func(c *Config) { c.AzureEndpoint = v } }

// WithModel sets logical model name.
func WithModel(v string) Option { return func(c *Config) { c.Model = v } }

// WithDeployment sets deployment mapping explicitly.
func WithDeployment(v string) Option { return func(c *Config) { c.Deployment = v } }

// WithTimeout sets request timeout.
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// NewAuto creates an Agent from options, filling the fields they leave empty
// from environment variables.
func NewAuto(opts ...Option) *Agent {
	cfg := Config{}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.LoadEnv()
	return New(cfg)
}

func (a *Agent) client(apiKey string) oaiClient {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[apiKey]; ok {
		return c
	}
	if a.clients == nil {
		a.clients = make(map[string]oaiClient)
	}
	c := a.newClient(apiKey)
	a.clients[apiKey] = c
	return c
}

// ChatOption allows customizing a single call.
type ChatOption func(*chatParams)

type chatParams struct {
	temperature float32
	maxTokens   int
}

// WithTemperature sets sampling temperature (0-2, typical 0-1).
func WithTemperature(t float32) ChatOption { return func(p *chatParams) { p.temperature = t } }

// WithMaxTokens limits output tokens (0 lets API decide / defaults).
func WithMaxTokens(n int) ChatOption { return func(p *chatParams) { p.maxTokens = n } }

func (a *Agent) request(msgs []Message, opts []ChatOption) openai.ChatCompletionRequest {
	p := chatParams{temperature: 0.7}
	for _, o := range opts {
		o(&p)
	}
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	req := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    out,
		Temperature: p.temperature,
	}
	if p.maxTokens > 0 {
		req.MaxTokens = p.maxTokens
	}
	return req
}

func (a *Agent) check(apiKey string) error {
	if a == nil || a.newClient == nil {
		return errors.New("agent not initialized")
	}
	if strings.TrimSpace(apiKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// CompleteChat sends msgs and returns the first choice's text.
func (a *Agent) CompleteChat(ctx context.Context, apiKey string, msgs []Message, opts ...ChatOption) (string, error) {
	if err := a.check(apiKey); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	resp, err := a.client(apiKey).CreateChatCompletion(ctx, a.request(msgs, opts))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamHandler receives incremental tokens. Return false to stop early.
type StreamHandler func(delta string) bool

// StreamChat streams a response chunk by chunk, invoking handler for each.
// It returns the aggregated text and any error. When the upstream fails or the
// handler returns false, the text received so far is returned alongside the
// error (ErrStreamStopped in the latter case).
func (a *Agent) StreamChat(ctx context.Context, apiKey string, msgs []Message, handler StreamHandler, opts ...ChatOption) (string, error) {
	if err := a.check(apiKey); err != nil {
		return "", err
	}
	if handler == nil {
		return "", errors.New("nil stream handler")
	}
	req := a.request(msgs, opts)
	req.Stream = true

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	stream, err := a.client(apiKey).CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return full.String(), err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" { // may carry role/done markers
			continue
		}
		full.WriteString(delta)
		if !handler(delta) {
			return full.String(), ErrStreamStopped
		}
	}
	return full.String(), nil
}
