package enrich

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// OptionalCount is a join-attached count with three states: never joined (zero
// value, omitted from JSON), joined without a match (JSON null), and joined with
// a value (possibly 0).
type OptionalCount struct {
	set   bool
	valid bool
	n     int
}

// KnownCount returns a matched count.
func KnownCount(n int) OptionalCount {
	return OptionalCount{set: true, valid: true, n: n}
}

// AbsentCount returns the sentinel attached when no auxiliary match exists.
func AbsentCount() OptionalCount {
	return OptionalCount{set: true}
}

// IsZero reports whether the count was never attached. Used by omitzero.
func (c OptionalCount) IsZero() bool {
	return !c.set
}

// Attached reports whether a join touched the record.
func (c OptionalCount) Attached() bool {
	return c.set
}

// Value returns the count and whether a match supplied one.
func (c OptionalCount) Value() (int, bool) {
	return c.n, c.valid
}

func (c OptionalCount) MarshalJSON() ([]byte, error) {
	if !c.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.n)), nil
}

func (c *OptionalCount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = AbsentCount()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return eris.Wrap(err, "total_related_count: expected number or null")
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return eris.Errorf("total_related_count: expected a non-negative integer, got %s", b)
	}
	*c = KnownCount(int(f))
	return nil
}
