package catalog

import "github.com/metricboard/engine/internal/models"

// Template names.
const (
	TemplateLaunch       = "launch"
	TemplatePerpetual    = "perpetual"
	TemplateSubscription = "subscription"
)

// Tab ids shared by the templates.
const (
	TabOverview = "overview"
	TabTrafego  = "trafego"
	TabFunil    = models.FunnelTab
	TabVendas   = "vendas"
	TabReceita  = "receita"
	TabRetencao = "retencao"
)

// CardSeed is one default metric placement, in display order.
type CardSeed struct {
	MetricID string
	Variant  models.Variant
	Hidden   bool
}

// ChartSeed is one default chart placement, in display order.
type ChartSeed struct {
	ChartID string
	Type    models.ChartType
	Hidden  bool
}

// TabLayout is the compiled-in default layout of a tab.
type TabLayout struct {
	TabID  string
	Title  string
	Cards  []CardSeed
	Charts []ChartSeed
}

func hero(id string) CardSeed   { return CardSeed{MetricID: id, Variant: models.VariantHero} }
func card(id string) CardSeed   { return CardSeed{MetricID: id, Variant: models.VariantCard} }
func hidden(id string) CardSeed { return CardSeed{MetricID: id, Variant: models.VariantCard, Hidden: true} }

var templates = map[string][]TabLayout{
	TemplateLaunch: {
		{
			TabID: TabOverview, Title: "Visão Geral",
			Cards: []CardSeed{hero(Faturamento), hero(Investimento), card(ROI), card(Leads), card(CPL), card(Vendas), card(TicketMedio), hidden(ROAS)},
			Charts: []ChartSeed{
				{ChartID: "faturamento_vs_investimento", Type: models.ChartCombo},
				{ChartID: "leads_por_dia", Type: models.ChartLine},
				{ChartID: "origem_leads", Type: models.ChartPie, Hidden: true},
			},
		},
		{
			TabID: TabTrafego, Title: "Tráfego",
			Cards: []CardSeed{hero(Investimento), card(Impressoes), card(Cliques), card(CTR), card(CPC), card(CPL)},
			Charts: []ChartSeed{
				{ChartID: "investimento_por_dia", Type: models.ChartBar},
				{ChartID: "ctr_por_dia", Type: models.ChartLine},
			},
		},
		{
			TabID: TabFunil, Title: "Funil",
			Cards: []CardSeed{card(PageViews), card(ConnectRate), card(Leads), card(TaxaOptin), card(Checkouts), card(TaxaCheckout), card(Vendas)},
			Charts: []ChartSeed{
				{ChartID: "funil_conversao", Type: models.ChartFunnel},
			},
		},
		{
			TabID: TabVendas, Title: "Vendas",
			Cards: []CardSeed{hero(Faturamento), card(Vendas), card(TicketMedio), card(TaxaConversao), card(CPA)},
			Charts: []ChartSeed{
				{ChartID: "vendas_por_dia", Type: models.ChartBar},
				{ChartID: "faturamento_acumulado", Type: models.ChartArea},
			},
		},
	},
	TemplatePerpetual: {
		{
			TabID: TabOverview, Title: "Visão Geral",
			Cards: []CardSeed{hero(Faturamento), card(Investimento), card(ROAS), card(Vendas), card(CPA), card(TicketMedio)},
			Charts: []ChartSeed{
				{ChartID: "faturamento_vs_investimento", Type: models.ChartCombo},
				{ChartID: "vendas_por_dia", Type: models.ChartBar},
			},
		},
		{
			TabID: TabFunil, Title: "Funil",
			Cards: []CardSeed{card(Impressoes), card(Cliques), card(PageViews), card(Checkouts), card(Vendas), card(TaxaConversao)},
			Charts: []ChartSeed{
				{ChartID: "funil_conversao", Type: models.ChartFunnel},
				{ChartID: "ctr_por_dia", Type: models.ChartLine, Hidden: true},
			},
		},
		{
			TabID: TabVendas, Title: "Vendas",
			Cards: []CardSeed{hero(Faturamento), card(Vendas), card(TicketMedio), card(ROI)},
			Charts: []ChartSeed{
				{ChartID: "faturamento_acumulado", Type: models.ChartArea},
			},
		},
	},
	TemplateSubscription: {
		{
			TabID: TabOverview, Title: "Visão Geral",
			Cards: []CardSeed{hero(MRR), card(AssinantesAtivos), card(NovosAssinantes), card(Churn), card(LTV), card(CAC)},
			Charts: []ChartSeed{
				{ChartID: "mrr_evolucao", Type: models.ChartArea},
				{ChartID: "novos_vs_cancelados", Type: models.ChartBar},
			},
		},
		{
			TabID: TabReceita, Title: "Receita",
			Cards: []CardSeed{hero(MRR), card(Faturamento), card(TicketMedio), card(Investimento), card(ROI)},
			Charts: []ChartSeed{
				{ChartID: "mrr_evolucao", Type: models.ChartLine},
			},
		},
		{
			TabID: TabRetencao, Title: "Retenção",
			Cards: []CardSeed{card(Churn), card(Cancelamentos), card(AssinantesAtivos), card(LTV)},
			Charts: []ChartSeed{
				{ChartID: "churn_por_mes", Type: models.ChartLine},
			},
		},
	},
}

// ValidTemplate reports whether name is a known template.
func ValidTemplate(name string) bool {
	_, ok := templates[name]
	return ok
}

// Tabs returns the default tab layouts of a template in display order.
func Tabs(template string) []TabLayout {
	return templates[template]
}

// DefaultLayout returns the compiled-in layout for a tab of a template.
// Custom tabs have no default and report false.
func DefaultLayout(template, tabID string) (TabLayout, bool) {
	for _, tl := range templates[template] {
		if tl.TabID == tabID {
			return tl, true
		}
	}
	return TabLayout{}, false
}

// SeedEntries materialises a TabLayout into layout rows for a project.
func (tl TabLayout) SeedEntries(projectID string) ([]models.TabLayoutEntry, []models.ChartLayoutEntry) {
	entries := make([]models.TabLayoutEntry, 0, len(tl.Cards))
	for i, c := range tl.Cards {
		entries = append(entries, models.TabLayoutEntry{
			ProjectID: projectID,
			TabID:     tl.TabID,
			MetricID:  c.MetricID,
			Visible:   !c.Hidden,
			Position:  i + 1,
			Variant:   c.Variant,
		})
	}
	charts := make([]models.ChartLayoutEntry, 0, len(tl.Charts))
	for i, c := range tl.Charts {
		charts = append(charts, models.ChartLayoutEntry{
			ProjectID: projectID,
			TabID:     tl.TabID,
			ChartID:   c.ChartID,
			Visible:   !c.Hidden,
			Type:      c.Type,
			Seq:       i + 1,
		})
	}
	return entries, charts
}
