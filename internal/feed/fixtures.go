package feed

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/dashboard"
	appErr "github.com/metricboard/engine/pkg/errors"
)

// Fixtures is the deterministic demo data of a template. Every metric placed by the template
// gets a value and derived metrics are consistent with their inputs.
type Fixtures struct {
	template string
}

// NewFixtures returns the demo source of template.
func NewFixtures(template string) *Fixtures { return &Fixtures{template: template} }

var fixtureBase = map[string]map[string]int64{
	catalog.TemplateLaunch: {
		catalog.Investimento: 12000,
		catalog.Faturamento:  58400,
		catalog.Leads:        3200,
		catalog.Vendas:       146,
		catalog.Impressoes:   410000,
		catalog.Cliques:      9800,
		catalog.PageViews:    8900,
		catalog.Checkouts:    410,
	},
	catalog.TemplatePerpetual: {
		catalog.Investimento: 4500,
		catalog.Faturamento:  15960,
		catalog.Leads:        0,
		catalog.Vendas:       84,
		catalog.Impressoes:   150000,
		catalog.Cliques:      3100,
		catalog.PageViews:    2750,
		catalog.Checkouts:    260,
	},
	catalog.TemplateSubscription: {
		catalog.Investimento:     6000,
		catalog.Faturamento:      24850,
		catalog.MRR:              24850,
		catalog.AssinantesAtivos: 710,
		catalog.NovosAssinantes:  96,
		catalog.Cancelamentos:    31,
		catalog.Vendas:           96,
	},
}

// Fetch returns the fixture records ordered by id.
func (f *Fixtures) Fetch(context.Context) ([]dashboard.Record, error) {
	base, ok := fixtureBase[f.template]
	if !ok {
		return nil, appErr.Newf(appErr.CodeInvalid, "unknown template %q", f.template)
	}
	v := func(id string) decimal.Decimal { return decimal.NewFromInt(base[id]) }
	ratio := func(num, den decimal.Decimal, scale int64) decimal.Decimal {
		if den.IsZero() {
			return decimal.Zero
		}
		return num.Div(den).Mul(decimal.NewFromInt(scale))
	}

	values := map[string]decimal.Decimal{}
	for id := range base {
		values[id] = v(id)
	}
	inv, rev := v(catalog.Investimento), v(catalog.Faturamento)
	leads, sales := v(catalog.Leads), v(catalog.Vendas)
	clicks, views, checkouts := v(catalog.Cliques), v(catalog.PageViews), v(catalog.Checkouts)

	values[catalog.ROI] = ratio(rev.Sub(inv), inv, 100)
	values[catalog.ROAS] = ratio(rev, inv, 1)
	values[catalog.CPL] = ratio(inv, leads, 1)
	values[catalog.CPA] = ratio(inv, sales, 1)
	values[catalog.TicketMedio] = ratio(rev, sales, 1)
	values[catalog.TaxaConversao] = ratio(sales, leads, 100)
	values[catalog.CTR] = ratio(clicks, v(catalog.Impressoes), 100)
	values[catalog.CPC] = ratio(inv, clicks, 1)
	values[catalog.ConnectRate] = ratio(views, clicks, 100)
	values[catalog.TaxaOptin] = ratio(leads, views, 100)
	values[catalog.TaxaCheckout] = ratio(sales, checkouts, 100)
	if f.template == catalog.TemplatePerpetual {
		values[catalog.TaxaConversao] = ratio(sales, views, 100)
	}
	if f.template == catalog.TemplateSubscription {
		active := v(catalog.AssinantesAtivos)
		churn := ratio(v(catalog.Cancelamentos), active, 100)
		values[catalog.Churn] = churn
		values[catalog.TicketMedio] = ratio(v(catalog.MRR), active, 1)
		values[catalog.LTV] = ratio(values[catalog.TicketMedio], churn, 100)
		values[catalog.CAC] = ratio(inv, v(catalog.NovosAssinantes), 1)
	}

	var out []dashboard.Record
	for _, tl := range catalog.Tabs(f.template) {
		for _, c := range tl.Cards {
			if slices.ContainsFunc(out, func(r dashboard.Record) bool { return r.ID == c.MetricID }) {
				continue
			}
			def, _ := catalog.Lookup(c.MetricID)
			val, _ := values[c.MetricID].Round(2).Float64()
			out = append(out, dashboard.Record{ID: c.MetricID, Name: def.Name, Value: val, ValueType: def.ValueType})
		}
	}
	slices.SortFunc(out, func(a, b dashboard.Record) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}
