// Package dataset reads the entity input list and the auxiliary dataset.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/shpitdev/researcher-enrichment/internal/enrich"
)

// ErrMissingName is returned for an input row without a name.
var ErrMissingName = eris.New("entity has no name")

// DefaultListKeys are the object keys searched for the entity list when the
// JSON input is an object rather than a bare list.
var DefaultListKeys = []string{"entities", "unique_chief_investigators", "results"}

// LoadEntities reads entities from a .csv file or a JSON file.
func LoadEntities(path string, listKeys ...string) ([]enrich.Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var out []enrich.Entity
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		out, err = ReadEntitiesCSV(f)
	} else {
		out, err = ReadEntitiesJSON(f, listKeys...)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return out, nil
}

type entityJSON struct {
	Name         string     `json:"name"`
	Affiliations stringList `json:"affiliations"`
}

// ReadEntitiesJSON accepts a list of {name, affiliations} objects or an object
// holding that list under one of listKeys (DefaultListKeys when none given).
// Affiliations may be a list or a single string.
func ReadEntitiesJSON(r io.Reader, listKeys ...string) ([]enrich.Entity, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read input")
	}
	if len(listKeys) == 0 {
		listKeys = DefaultListKeys
	}

	list, err := findList(data, listKeys)
	if err != nil {
		return nil, err
	}
	var rows []entityJSON
	if err := json.Unmarshal(list, &rows); err != nil {
		return nil, eris.Wrap(err, "decode entities")
	}

	out := make([]enrich.Entity, 0, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			return nil, eris.Wrapf(ErrMissingName, "entity %d", i)
		}
		affs := []string(row.Affiliations)
		if affs == nil {
			affs = []string{}
		}
		out = append(out, enrich.Entity{Name: row.Name, Affiliations: affs})
	}
	return out, nil
}

func findList(data []byte, keys []string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, eris.New("input is empty")
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, eris.Wrap(err, "input is neither a JSON list nor an object")
	}
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, nil
		}
	}
	return nil, eris.Errorf("input object has none of the keys %v", keys)
}

// ReadEntitiesCSV reads the "name" column and an optional "affiliations"
// column whose values are separated by semicolons.
func ReadEntitiesCSV(r io.Reader) ([]enrich.Entity, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	nameIdx, affIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "name":
			nameIdx = i
		case "affiliations":
			affIdx = i
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("missing required column %q", "name")
	}

	var out []enrich.Entity
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read row")
		}
		if nameIdx >= len(rec) || strings.TrimSpace(rec[nameIdx]) == "" {
			return nil, eris.Wrapf(ErrMissingName, "row %d", row)
		}
		e := enrich.Entity{Name: rec[nameIdx], Affiliations: []string{}}
		if affIdx >= 0 && affIdx < len(rec) {
			e.Affiliations = splitAffiliations(rec[affIdx])
		}
		out = append(out, e)
	}
	return out, nil
}

func splitAffiliations(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// stringList decodes a JSON string, list of strings, or null.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = []string{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = splitAffiliations(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return eris.Wrap(err, "affiliations: expected string or list of strings")
	}
	if many == nil {
		many = []string{}
	}
	*s = many
	return nil
}
