// Package feed reads metric values from external sources: spreadsheet CSV exports, published
// sheet URLs and the built-in demo fixtures.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/metricboard/engine/internal/dashboard"
)

// Source produces one batch of metric records per call.
type Source interface {
	Fetch(ctx context.Context) ([]dashboard.Record, error)
}

// Mapping maps spreadsheet column headers to metric ids. Header matching ignores case and
// surrounding blanks.
type Mapping map[string]string

// ParseMapping decodes a JSON object of header → metric id. Empty input yields an empty mapping.
func ParseMapping(raw []byte) (Mapping, error) {
	m := Mapping{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode source mapping: %w", err)
	}
	return m, nil
}

func (m Mapping) normalized() map[string]string {
	out := make(map[string]string, len(m))
	for header, id := range m {
		out[normalizeHeader(header)] = strings.TrimSpace(id)
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}
