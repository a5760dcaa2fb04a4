package dataset

import (
	"encoding/json"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
	"github.com/shpitdev/researcher-enrichment/internal/join"
)

// AuxiliaryOptions locates the rows and the value inside an auxiliary file.
type AuxiliaryOptions struct {
	// ListKey holds the row list. Defaults to "entities".
	ListKey string
	// FieldKey holds the count in each row. Defaults to "total_projects".
	FieldKey string
}

func (o AuxiliaryOptions) withDefaults() AuxiliaryOptions {
	if strings.TrimSpace(o.ListKey) == "" {
		o.ListKey = "entities"
	}
	if strings.TrimSpace(o.FieldKey) == "" {
		o.FieldKey = "total_projects"
	}
	return o
}

// LoadAuxiliary reads {"<list>": [{"name": ..., "<field>": n, ...}, ...]}.
// Rows where the field is missing or null carry no count.
func LoadAuxiliary(path string, opts AuxiliaryOptions) ([]join.AuxiliaryEntity, error) {
	opts = opts.withDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	raw, ok := doc[opts.ListKey]
	if !ok {
		return nil, eris.Errorf("%s: missing list key %q", path, opts.ListKey)
	}
	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, eris.Wrapf(err, "%s: decode %q", path, opts.ListKey)
	}

	out := make([]join.AuxiliaryEntity, 0, len(rows))
	for i, row := range rows {
		name, _ := row["name"].(string)
		if strings.TrimSpace(name) == "" {
			return nil, eris.Wrapf(ErrMissingName, "%s: row %d", path, i)
		}
		e := join.AuxiliaryEntity{Name: name}
		switch v := row[opts.FieldKey].(type) {
		case nil:
		case float64:
			if v < 0 || v != math.Trunc(v) {
				return nil, eris.Errorf("%s: row %d (%s): %q must be a non-negative integer, got %v", path, i, name, opts.FieldKey, v)
			}
			e.Count = enrich.KnownCount(int(v))
		default:
			return nil, eris.Errorf("%s: row %d (%s): %q must be a number, got %T", path, i, name, opts.FieldKey, v)
		}
		out = append(out, e)
	}
	return out, nil
}
