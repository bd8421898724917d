// Package catalog holds the compiled-in metric registry and dashboard templates.
package catalog

import (
	"slices"
	"strings"

	"github.com/metricboard/engine/internal/models"
)

// Definition describes a well-known metric key.
type Definition struct {
	Key       string           `json:"key"`
	Name      string           `json:"name"`
	ValueType models.ValueType `json:"value_type"`
}

// Well-known metric keys. Feeds map spreadsheet columns onto these ids.
const (
	Investimento     = "investimento"
	Faturamento      = "faturamento"
	Leads            = "leads"
	Vendas           = "vendas"
	ROI              = "roi"
	ROAS             = "roas"
	CPL              = "cpl"
	CPA              = "cpa"
	TicketMedio      = "ticket_medio"
	TaxaConversao    = "taxa_conversao"
	Impressoes       = "impressoes"
	Cliques          = "cliques"
	CTR              = "ctr"
	CPC              = "cpc"
	PageViews        = "page_views"
	ConnectRate      = "connect_rate"
	TaxaOptin        = "taxa_optin"
	Checkouts        = "checkouts"
	TaxaCheckout     = "taxa_checkout"
	MRR              = "mrr"
	AssinantesAtivos = "assinantes_ativos"
	NovosAssinantes  = "novos_assinantes"
	Cancelamentos    = "cancelamentos"
	Churn            = "churn"
	LTV              = "ltv"
	CAC              = "cac"
)

var registry = map[string]Definition{
	Investimento:     {Investimento, "Investimento", models.ValueCurrency},
	Faturamento:      {Faturamento, "Faturamento", models.ValueCurrency},
	Leads:            {Leads, "Leads Captados", models.ValueNumber},
	Vendas:           {Vendas, "Vendas", models.ValueNumber},
	ROI:              {ROI, "ROI", models.ValuePercent},
	ROAS:             {ROAS, "ROAS", models.ValueNumber},
	CPL:              {CPL, "Custo por Lead", models.ValueCurrency},
	CPA:              {CPA, "Custo por Aquisição", models.ValueCurrency},
	TicketMedio:      {TicketMedio, "Ticket Médio", models.ValueCurrency},
	TaxaConversao:    {TaxaConversao, "Taxa de Conversão", models.ValuePercent},
	Impressoes:       {Impressoes, "Impressões", models.ValueNumber},
	Cliques:          {Cliques, "Cliques", models.ValueNumber},
	CTR:              {CTR, "CTR", models.ValuePercent},
	CPC:              {CPC, "CPC", models.ValueCurrency},
	PageViews:        {PageViews, "Visualizações de Página", models.ValueNumber},
	ConnectRate:      {ConnectRate, "Connect Rate", models.ValuePercent},
	TaxaOptin:        {TaxaOptin, "Taxa de Opt-in", models.ValuePercent},
	Checkouts:        {Checkouts, "Checkouts Iniciados", models.ValueNumber},
	TaxaCheckout:     {TaxaCheckout, "Conversão do Checkout", models.ValuePercent},
	MRR:              {MRR, "MRR", models.ValueCurrency},
	AssinantesAtivos: {AssinantesAtivos, "Assinantes Ativos", models.ValueNumber},
	NovosAssinantes:  {NovosAssinantes, "Novos Assinantes", models.ValueNumber},
	Cancelamentos:    {Cancelamentos, "Cancelamentos", models.ValueNumber},
	Churn:            {Churn, "Churn", models.ValuePercent},
	LTV:              {LTV, "LTV", models.ValueCurrency},
	CAC:              {CAC, "CAC", models.ValueCurrency},
}

// Lookup returns the registry definition for key.
func Lookup(key string) (Definition, bool) {
	d, ok := registry[key]
	return d, ok
}

// Definitions returns every registry entry sorted by key.
func Definitions() []Definition {
	out := make([]Definition, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Definition) int { return strings.Compare(a.Key, b.Key) })
	return out
}
