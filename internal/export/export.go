// Package export writes a tab projection as a downloadable file.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/dashboard"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// Format is an export file format.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts json, csv and xlsx. An empty string means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return JSON, nil
	case JSON, CSV, XLSX:
		return f, nil
	}
	return "", appErr.Newf(appErr.CodeInvalid, "unsupported export format %q", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Filename names the download of a projection.
func (f Format) Filename(p dashboard.Projection) string {
	name := p.TabID
	if p.Date != "" {
		name += "-" + string(p.Date)
	}
	return name + "." + string(f)
}

var header = []string{"position", "metric_id", "name", "value", "value_type", "display", "variant"}

func row(c dashboard.Card) []string {
	return []string{
		strconv.Itoa(c.Position),
		c.Metric.ID,
		c.Metric.Name,
		strconv.FormatFloat(c.Metric.Value, 'f', -1, 64),
		string(c.Metric.ValueType),
		catalog.Format(c.Metric.Value, c.Metric.ValueType),
		string(c.Variant),
	}
}

// Write encodes p to w in format f.
func Write(w io.Writer, f Format, p dashboard.Projection) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case CSV:
		return writeCSV(w, p)
	case XLSX:
		return writeXLSX(w, p)
	}
	return appErr.Newf(appErr.CodeInvalid, "unsupported export format %q", f)
}

func writeCSV(w io.Writer, p dashboard.Projection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range p.Cards {
		if err := cw.Write(row(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	metricsSheet = "Metricas"
	chartsSheet  = "Graficos"
)

func writeXLSX(w io.Writer, p dashboard.Projection) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", metricsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(metricsSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return err
	}
	for i, c := range p.Cards {
		coord, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{
			c.Position,
			c.Metric.ID,
			c.Metric.Name,
			c.Metric.Value,
			string(c.Metric.ValueType),
			catalog.Format(c.Metric.Value, c.Metric.ValueType),
			string(c.Variant),
		}
		if err := sw.SetRow(coord, values); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush metrics sheet: %w", err)
	}

	if _, err := f.NewSheet(chartsSheet); err != nil {
		return fmt.Errorf("create charts sheet: %w", err)
	}
	if err := f.SetSheetRow(chartsSheet, "A1", &[]any{"chart_id", "type"}); err != nil {
		return err
	}
	for i, c := range p.Charts {
		coord, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(chartsSheet, coord, &[]any{c.ChartID, string(c.Type)}); err != nil {
			return err
		}
	}

	props := &excelize.DocProperties{Title: p.TabID, Description: p.Mode}
	if p.Date != "" {
		props.Description = p.Mode + " " + string(p.Date)
	}
	if err := f.SetDocProps(props); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
