package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/models"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// CSV reads a spreadsheet export where each row is one day and each mapped column one metric.
// Number and currency columns are summed over the rows, percent columns averaged. Blank cells
// are ignored. Columns without a mapping entry are skipped.
type CSV struct {
	r       io.Reader
	mapping Mapping
}

// NewCSV returns a source reading r once.
func NewCSV(r io.Reader, mapping Mapping) *CSV {
	return &CSV{r: r, mapping: mapping}
}

// Fetch parses the whole input.
func (c *CSV) Fetch(ctx context.Context) ([]dashboard.Record, error) {
	return parseCSV(ctx, c.r, c.mapping)
}

type column struct {
	index int
	id    string
	vt    models.ValueType
	sum   decimal.Decimal
	n     int64
}

func parseCSV(ctx context.Context, r io.Reader, mapping Mapping) ([]dashboard.Record, error) {
	br := bufio.NewReader(r)
	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, appErr.New(appErr.CodeInvalid, "csv input is empty")
	}
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "read csv header")
	}

	wanted := mapping.normalized()
	var cols []*column
	seen := map[string]bool{}
	for i, h := range header {
		id, ok := wanted[normalizeHeader(h)]
		if !ok || id == "" {
			continue
		}
		if seen[id] {
			return nil, appErr.Newf(appErr.CodeInvalid, "metric %s is mapped from more than one column", id)
		}
		seen[id] = true
		vt := models.ValueNumber
		if def, known := catalog.Lookup(id); known {
			vt = def.ValueType
		}
		cols = append(cols, &column{index: i, id: id, vt: vt})
	}
	if len(cols) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "no csv column matches the source mapping")
	}

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInvalid, "read csv row").WithMeta("line", line)
		}
		for _, c := range cols {
			if c.index >= len(row) || strings.TrimSpace(row[c.index]) == "" {
				continue
			}
			v, err := ParseNumber(row[c.index])
			if err != nil {
				return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid number").
					WithMeta("line", line).
					WithMeta("column", header[c.index])
			}
			c.sum = c.sum.Add(v)
			c.n++
		}
	}

	out := make([]dashboard.Record, 0, len(cols))
	for _, c := range cols {
		total := c.sum
		if c.vt == models.ValuePercent && c.n > 0 {
			total = total.Div(decimal.NewFromInt(c.n))
		}
		f, _ := total.Round(2).Float64()
		out = append(out, dashboard.Record{ID: c.id, Value: f, ValueType: c.vt})
	}
	slices.SortFunc(out, func(a, b dashboard.Record) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// sniffDelimiter picks ';' for spreadsheets exported with a comma decimal separator.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.Count(head, []byte(";")) > bytes.Count(head, []byte(",")) {
		return ';'
	}
	return ','
}
