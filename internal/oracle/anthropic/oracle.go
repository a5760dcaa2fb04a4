// Package anthropic classifies researchers with Claude. It is the default
// backend for the name-only fallback pass.
package anthropic

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/prompt"
)

const defaultMaxTokens = 600

type Config struct {
	APIKey  string
	Model   string
	BaseURL string

	MaxTokens   int64
	Temperature *float64

	Mode prompt.Mode
}

type Oracle struct {
	client      sdk.Client
	model       string
	maxTokens   int64
	temperature *float64
	mode        prompt.Mode
}

func New(cfg Config) (*Oracle, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("anthropic: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, eris.New("anthropic: model is required")
	}

	// Retries are off: a failed call becomes a placeholder and the entity is
	// retried on a later run.
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(cfg.BaseURL)))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Oracle{
		client:      sdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		mode:        cfg.Mode,
	}, nil
}

func (o *Oracle) Classify(ctx context.Context, name string, affiliations []string) enrich.Outcome {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(o.model),
		MaxTokens: o.maxTokens,
		System:    []sdk.TextBlockParam{{Text: prompt.System(o.mode)}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt.User(o.mode, name, affiliations))),
		},
	}
	if o.temperature != nil {
		params.Temperature = sdk.Float(*o.temperature)
	}

	msg, err := o.client.Messages.New(ctx, params)
	if err != nil {
		return enrich.FailWith(classifyErr(err))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	parsed, err := enrich.ParseResponse(text.String())
	if err != nil {
		return enrich.FailWith(err)
	}
	return enrich.Success(parsed)
}

func classifyErr(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &enrich.Error{Kind: enrich.FailureQuota, Err: err}
		case apiErr.StatusCode >= 500:
			return &enrich.Error{Kind: enrich.FailureTransport, Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &enrich.Error{Kind: enrich.FailureTimeout, Err: err}
	}
	return err
}
