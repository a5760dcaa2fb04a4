// Package gemini classifies researchers with Gemini, using Google Search
// grounding for the primary pass.
package gemini

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/prompt"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	Mode prompt.Mode
}

type Oracle struct {
	client *genai.Client
	model  string
	mode   prompt.Mode
}

func New(ctx context.Context, cfg Config) (*Oracle, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("gemini: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, eris.New("gemini: model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &Oracle{
		client: client,
		model:  strings.TrimSpace(cfg.Model),
		mode:   cfg.Mode,
	}, nil
}

func (o *Oracle) Classify(ctx context.Context, name string, affiliations []string) enrich.Outcome {
	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System(o.mode), genai.RoleUser),
		CandidateCount:    1,
	}
	if o.mode == prompt.Search {
		// Search grounding cannot be combined with a response schema, so the
		// JSON shape is enforced by the prompt and the lenient parser.
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseSchema = nameOnlySchema
	}

	resp, err := o.client.Models.GenerateContent(ctx, o.model, genai.Text(prompt.User(o.mode, name, affiliations)), gc)
	if err != nil {
		return enrich.FailWith(classifyErr(err))
	}

	parsed, err := enrich.ParseResponse(resp.Text())
	if err != nil {
		return enrich.FailWith(err)
	}
	if o.mode == prompt.Search && parsed.EvidenceCount == 0 {
		parsed.EvidenceCount = len(extractSources(resp))
	}
	return enrich.Success(parsed)
}

var nameOnlySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"classification": {Type: genai.TypeString, Enum: []string{"female", "male", "unknown"}},
		"confidence":     {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
		"reasoning":      {Type: genai.TypeString},
	},
	Required: []string{"classification", "confidence", "reasoning"},
}

// classifyErr tags API errors with a failure kind.
func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return &enrich.Error{Kind: enrich.FailureQuota, Err: err}
		case apiErr.Code/100 == 5:
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

func extractSources(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(gm.GroundingChunks))
	var out []string
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		uri := strings.TrimSpace(chunk.Web.URI)
		if uri == "" {
			continue
		}
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		out = append(out, uri)
	}
	return out
}
