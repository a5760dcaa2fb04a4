package enrich

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is deliberately loose: it rejects shapes no coercion can save
// (non-objects, nested objects where text belongs) and lets the coercion below
// handle scalar drift such as "3" for 3.
const responseSchema = `{
  "type": "object",
  "properties": {
    "classification":    {"type": ["string", "null"]},
    "gender":            {"type": ["string", "null"]},
    "confidence":        {"type": ["string", "null"]},
    "summary":           {"type": ["string", "null"]},
    "topics":            {"type": ["array", "string", "null"]},
    "research_areas":    {"type": ["array", "string", "null"]},
    "evidence_count":    {"type": ["number", "string", "null"]},
    "web_sources_found": {"type": ["number", "string", "null"]},
    "search_successful": {"type": ["boolean", "string", "null"]},
    "notes":             {"type": ["string", "null"]},
    "search_notes":      {"type": ["string", "null"]},
    "reasoning":         {"type": ["string", "null"]}
  }
}`

var compiledResponseSchema = jsonschema.MustCompileString("oracle_response.json", responseSchema)

// Field aliases, canonical key first. The later keys are what the original
// prompts asked for and what older result files carry.
var (
	keysClassification = []string{"classification", "gender"}
	keysTopics         = []string{"topics", "research_areas"}
	keysEvidence       = []string{"evidence_count", "web_sources_found"}
	keysNotes          = []string{"notes", "search_notes", "reasoning"}
)

// ParseResponse decodes untrusted oracle text into a Response. Errors are
// *Error with Kind FailureMalformed.
func ParseResponse(text string) (Response, error) {
	obj, err := decodeObject(text)
	if err != nil {
		return Response{}, &Error{Kind: FailureMalformed, Err: err}
	}
	if err := compiledResponseSchema.Validate(obj); err != nil {
		return Response{}, &Error{Kind: FailureMalformed, Err: eris.Wrap(err, "oracle response does not match schema")}
	}
	m := obj.(map[string]any)

	return Response{
		Classification:   ParseClassification(firstString(m, keysClassification...)),
		Confidence:       ParseConfidence(firstString(m, "confidence")),
		Summary:          strings.TrimSpace(firstString(m, "summary")),
		Topics:           stringList(first(m, keysTopics...)),
		EvidenceCount:    count(first(m, keysEvidence...)),
		SearchSuccessful: truthy(m["search_successful"]),
		Notes:            strings.TrimSpace(firstString(m, keysNotes...)),
	}, nil
}

// decodeObject accepts bare JSON, JSON inside a markdown fence, or JSON embedded
// in prose (outermost braces).
func decodeObject(text string) (any, error) {
	cleaned := CleanJSONBlock(text)
	if cleaned == "" {
		return nil, eris.New("empty oracle response")
	}
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		return v, nil
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("no JSON object in oracle response: %q", truncate(cleaned, 100))
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &v); err != nil {
		return nil, eris.Wrapf(err, "parse oracle response %q", truncate(cleaned, 100))
	}
	return v, nil
}

// CleanJSONBlock removes markdown code fences that models add even when told
// not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		tag := text[:idx]
		if len(tag) < 20 && !strings.ContainsAny(tag, " {") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	s, _ := first(m, keys...).(string)
	return s
}

func stringList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			var s string
			switch it := item.(type) {
			case string:
				s = it
			case float64, bool:
				s = fmt.Sprint(it)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func count(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
