package classifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ppiankov/reginduce/internal/annotate"
	"github.com/ppiankov/reginduce/internal/model"
	"github.com/ppiankov/reginduce/internal/util"
	"github.com/ppiankov/reginduce/internal/worker"
)

const defaultRemoteBaseURL = "https://api.openai.com/v1"

// Remote delegates span labeling to an OpenAI-compatible chat endpoint.
// Fit keeps a bounded set of tagged examples that are sent as few-shot context.
type Remote struct {
	client  *openai.Client
	cfg     model.RemoteConfig
	limiter *worker.Limiter
	logger  *zap.Logger
	baseURL string

	mu       sync.RWMutex
	label    string
	examples []string
}

// RemoteOption configures a Remote classifier
type RemoteOption func(*Remote)

// WithRemoteLogger sets the logger
func WithRemoteLogger(logger *zap.Logger) RemoteOption {
	return func(r *Remote) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLimiter shares a rate limiter across classifiers
func WithLimiter(l *worker.Limiter) RemoteOption {
	return func(r *Remote) {
		if l != nil {
			r.limiter = l
		}
	}
}

// NewRemote creates the remote classifier
func NewRemote(cfg model.RemoteConfig, opts ...RemoteOption) (*Remote, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
	default:
		return nil, fmt.Errorf("%w: unknown remote provider %q (supported: openai)", model.ErrInvalidConfiguration, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: remote classifier requires an API key", model.ErrInvalidConfiguration)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	baseURL := defaultRemoteBaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
		baseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)},
	}

	r := &Remote{
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		limiter: worker.NewLimiter(cfg.RequestsPerSecond, 1),
		logger:  zap.NewNop(),
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns "remote"
func (r *Remote) Name() string {
	return "remote"
}

// Fit stores up to MaxExamples tagged examples for label. No request is made.
func (r *Remote) Fit(ctx context.Context, label string, examples []model.Example) error {
	if label == "" {
		return fmt.Errorf("%w: label is required", model.ErrInvalidConfiguration)
	}

	var shots []string
	for _, ex := range examples {
		if r.cfg.MaxExamples > 0 && len(shots) >= r.cfg.MaxExamples {
			break
		}
		if len(ex.PositivesFor(label)) == 0 {
			continue
		}
		shots = append(shots, annotate.FormatTagged(ex, label))
	}
	if len(shots) == 0 {
		return fmt.Errorf("%w: no positive examples for %q", model.ErrInvalidConfiguration, label)
	}

	r.mu.Lock()
	r.label = strings.ToLower(label)
	r.examples = shots
	r.mu.Unlock()
	return nil
}

// Predict asks the endpoint to tag the text and maps the tagged values back onto it
func (r *Remote) Predict(ctx context.Context, text string) ([]model.MatchedElement, error) {
	r.mu.RLock()
	label, shots := r.label, r.examples
	r.mu.RUnlock()
	if label == "" {
		return nil, ErrNotFitted
	}

	if err := r.limiter.WaitURL(ctx, r.baseURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	timeout := time.Duration(r.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	modelName := r.cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildPrompt(label, shots)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("remote classifier: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("remote classifier: empty response")
	}

	r.logger.Debug("remote prediction",
		zap.String("label", label),
		zap.String("model", modelName),
		zap.Int("tokens", resp.Usage.TotalTokens))

	return r.align(label, text, resp.Choices[0].Message.Content)
}

// align locates each value tagged in reply inside the original text, in order
func (r *Remote) align(label, text, reply string) ([]model.MatchedElement, error) {
	tagged, err := annotate.ParseTagged(strings.TrimSpace(reply))
	if err != nil {
		return nil, fmt.Errorf("remote classifier: unreadable reply: %w", err)
	}

	var elements []model.MatchedElement
	cursor := 0
	for _, s := range tagged.PositivesFor(label) {
		value := tagged.SpanText(s)
		if value == "" {
			continue
		}
		i := strings.Index(text[cursor:], value)
		if i < 0 {
			r.logger.Warn("remote value not found in text", zap.String("value", value))
			continue
		}
		start := cursor + i
		elements = append(elements, model.MatchedElement{
			Start:    start,
			End:      start + len(value),
			Text:     value,
			Patterns: []string{r.Name()},
			Weight:   1,
			Label:    label,
		})
		cursor = start + len(value)
	}
	return elements, nil
}

func buildPrompt(label string, shots []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Copy the user's text exactly and wrap every %s value in <%s>...</%s> tags.\n", label, label, label)
	b.WriteString("Do not add, remove or change any other characters. Escape &, < and > as HTML entities.\n\n")
	b.WriteString("Examples:\n")
	for _, shot := range shots {
		b.WriteString(shot)
		b.WriteString("\n")
	}
	return b.String()
}
