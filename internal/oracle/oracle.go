// Package oracle builds a classification backend from its provider name.
package oracle

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/oracle/anthropic"
	"github.com/shpitdev/researcher-enrichment/internal/oracle/gemini"
	"github.com/shpitdev/researcher-enrichment/internal/prompt"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Providers lists the accepted provider names.
var Providers = []string{ProviderGemini, ProviderAnthropic}

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Mode     prompt.Mode
}

// New returns the oracle for cfg.Provider.
func New(ctx context.Context, cfg Config) (enrich.Oracle, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Mode:    cfg.Mode,
		})
	case ProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Mode:    cfg.Mode,
		})
	default:
		return nil, eris.Errorf("unknown oracle provider %q (want one of %s)", cfg.Provider, strings.Join(Providers, ", "))
	}
}
