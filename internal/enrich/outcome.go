package enrich

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/shpitdev/researcher-enrichment/internal/util"
)

// FailureKind groups oracle failures for statistics and notes.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureQuota     FailureKind = "quota"
	FailureTransport FailureKind = "transport"
	FailureMalformed FailureKind = "malformed"
	FailureCanceled  FailureKind = "canceled"
)

// Failure is the reason an oracle call produced no usable response.
type Failure struct {
	Kind   FailureKind
	Reason string
}

// Outcome is the tagged result of one oracle call: exactly one of Response
// (when Failure is nil) or Failure is meaningful.
type Outcome struct {
	Response Response
	Failure  *Failure
}

// Success wraps a coerced response.
func Success(resp Response) Outcome {
	return Outcome{Response: resp}
}

// Fail builds a failure outcome of the given kind.
func Fail(kind FailureKind, reason string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Reason: util.RedactSecrets(reason)}}
}

// FailWith builds a failure outcome from err, deriving the kind.
func FailWith(err error) Outcome {
	if err == nil {
		return Fail(FailureTransport, "unknown error")
	}
	return Fail(KindOf(err), err.Error())
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Error marks an adapter error with an explicit kind.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return string(e.kind()) + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) kind() FailureKind {
	if e == nil || e.Kind == "" {
		return FailureTransport
	}
	return e.Kind
}

var quotaMarkers = []string{
	"insufficient_quota",
	"exceeded your current quota",
	"rate_limit",
	"resource_exhausted",
	"too many requests",
	"429",
}

// KindOf classifies an error returned by an oracle transport.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var oe *Error
	if errors.As(err, &oe) {
		return oe.kind()
	}
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	msg := strings.ToLower(err.Error())
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return FailureQuota
		}
	}
	return FailureTransport
}

// NewRecord builds an output row from a successful oracle response, filling
// safe defaults for anything missing.
func NewRecord(e Entity, resp Response) Record {
	rec := Record{
		Name:             e.Name,
		Affiliations:     nonNil(e.Affiliations),
		Classification:   resp.Classification,
		Confidence:       resp.Confidence,
		Summary:          resp.Summary,
		Topics:           nonNil(resp.Topics),
		EvidenceCount:    resp.EvidenceCount,
		SearchSuccessful: resp.SearchSuccessful,
		Notes:            resp.Notes,
	}
	if rec.Classification == "" {
		rec.Classification = ClassificationUnknown
	}
	if rec.Confidence == "" {
		rec.Confidence = ConfidenceLow
	}
	if rec.EvidenceCount < 0 {
		rec.EvidenceCount = 0
	}
	return rec
}

// PlaceholderSummary is the summary written on rows whose oracle call failed.
const PlaceholderSummary = "Classification unavailable: oracle call failed."

// NewPlaceholder builds the unknown/low row recorded when the oracle fails.
func NewPlaceholder(e Entity, f Failure) Record {
	notes := fmt.Sprintf("API error (%s): %s", f.Kind, f.Reason)
	if f.Kind == FailureMalformed {
		notes = "JSON parsing failed: " + f.Reason
	}
	return Record{
		Name:           e.Name,
		Affiliations:   nonNil(e.Affiliations),
		Classification: ClassificationUnknown,
		Confidence:     ConfidenceLow,
		Summary:        PlaceholderSummary,
		Topics:         []string{},
		Notes:          notes,
	}
}

// RecordFor turns an outcome into the row the pipeline appends.
func RecordFor(e Entity, o Outcome) Record {
	if o.Failure != nil {
		return NewPlaceholder(e, *o.Failure)
	}
	return NewRecord(e, o.Response)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
