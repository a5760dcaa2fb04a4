package enrich

import (
	"context"
	"strings"
)

// Classification is the oracle's label for a researcher.
type Classification string

const (
	ClassificationFemale  Classification = "female"
	ClassificationMale    Classification = "male"
	ClassificationUnknown Classification = "unknown"
)

// ParseClassification maps free text onto the fixed label set. Anything it does
// not recognize is unknown.
func ParseClassification(raw string) Classification {
	switch Classification(strings.ToLower(strings.TrimSpace(raw))) {
	case ClassificationFemale:
		return ClassificationFemale
	case ClassificationMale:
		return ClassificationMale
	default:
		return ClassificationUnknown
	}
}

// Confidence is the oracle's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps free text onto high/medium/low, defaulting to low.
func ParseConfidence(raw string) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(raw))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Entity is one input researcher. Name is the exact dedup key for a job.
type Entity struct {
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

// Record is one row of pipeline output.
type Record struct {
	Name             string         `json:"name"`
	Affiliations     []string       `json:"affiliations"`
	Classification   Classification `json:"classification"`
	Confidence       Confidence     `json:"confidence"`
	Summary          string         `json:"summary"`
	Topics           []string       `json:"topics"`
	EvidenceCount    int            `json:"evidence_count"`
	SearchSuccessful bool           `json:"search_successful"`
	Notes            string         `json:"notes"`

	// Audit is set by the fallback merge, at most once.
	Audit *AuditTrail `json:"audit_trail,omitempty"`
	// TotalRelatedCount is set by the dataset join.
	TotalRelatedCount OptionalCount `json:"total_related_count,omitzero"`
}

// AuditTrail records how a fallback pass revised a record.
type AuditTrail struct {
	Method                 string         `json:"method"`
	OriginalClassification Classification `json:"original_classification"`
	RevisedClassification  Classification `json:"revised_classification"`
	Confidence             Confidence     `json:"confidence"`
	Reasoning              string         `json:"reasoning"`
	Disclaimer             string         `json:"disclaimer"`
}

// Response is the structured payload an oracle returns for one entity, after
// coercion. Zero values are the safe defaults.
type Response struct {
	Classification   Classification
	Confidence       Confidence
	Summary          string
	Topics           []string
	EvidenceCount    int
	SearchSuccessful bool
	Notes            string
}

// Oracle classifies one researcher. Implementations never panic on bad
// upstream data; every problem comes back as a Failure outcome.
type Oracle interface {
	Classify(ctx context.Context, name string, affiliations []string) Outcome
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, name string, affiliations []string) Outcome

func (f OracleFunc) Classify(ctx context.Context, name string, affiliations []string) Outcome {
	return f(ctx, name, affiliations)
}
