package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/metricboard/engine/internal/models"
)

// Aggregates are the headline numbers stored next to a snapshot.
type Aggregates struct {
	Revenue    float64 `json:"revenue"`
	Investment float64 `json:"investment"`
	Leads      float64 `json:"leads"`
	Sales      float64 `json:"sales"`
	ROI        float64 `json:"roi"`
	Conversion float64 `json:"conversion"`
}

var hundred = decimal.NewFromInt(100)

// Aggregate derives snapshot aggregates from a metric set. Missing keys count as zero;
// ROI and conversion are zero when their denominator is zero.
func Aggregate(metrics []models.Metric) Aggregates {
	byID := make(map[string]decimal.Decimal, len(metrics))
	for _, m := range metrics {
		byID[m.ID] = decimal.NewFromFloat(m.Value)
	}
	revenue := byID[Faturamento]
	investment := byID[Investimento]
	leads := byID[Leads]
	sales := byID[Vendas]

	roi := decimal.Zero
	if !investment.IsZero() {
		roi = revenue.Sub(investment).Div(investment).Mul(hundred)
	}
	conversion := decimal.Zero
	if !leads.IsZero() {
		conversion = sales.Div(leads).Mul(hundred)
	}

	return Aggregates{
		Revenue:    round2(revenue),
		Investment: round2(investment),
		Leads:      round2(leads),
		Sales:      round2(sales),
		ROI:        round2(roi),
		Conversion: round2(conversion),
	}
}

// Apply copies the aggregates onto a snapshot row.
func (a Aggregates) Apply(s *models.Snapshot) {
	s.Revenue = a.Revenue
	s.Investment = a.Investment
	s.Leads = a.Leads
	s.Sales = a.Sales
	s.ROI = a.ROI
	s.Conversion = a.Conversion
}

func round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
