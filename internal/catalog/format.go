package catalog

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/metricboard/engine/internal/models"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// Format renders a metric value the way the dashboards display it (pt-BR).
func Format(value float64, vt models.ValueType) string {
	switch vt {
	case models.ValueCurrency:
		return ptBR.Sprintf("R$ %.2f", value)
	case models.ValuePercent:
		return ptBR.Sprintf("%.1f%%", value)
	default:
		if value == float64(int64(value)) {
			return ptBR.Sprintf("%d", int64(value))
		}
		return ptBR.Sprintf("%.2f", value)
	}
}
