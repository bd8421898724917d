package models

// Variant is a presentation hint for a metric card.
type Variant string

const (
	VariantCard Variant = "card"
	VariantHero Variant = "hero"
)

func (v Variant) Valid() bool { return v == VariantCard || v == VariantHero }

// ChartType selects the chart renderer.
type ChartType string

const (
	ChartLine   ChartType = "line"
	ChartArea   ChartType = "area"
	ChartBar    ChartType = "bar"
	ChartPie    ChartType = "pie"
	ChartCombo  ChartType = "combo"
	ChartFunnel ChartType = "funnel"
)

// FunnelTab is the only tab allowed to render funnel charts.
const FunnelTab = "funil"

// ValidOn reports whether the chart type may be used on tabID.
func (c ChartType) ValidOn(tabID string) bool {
	switch c {
	case ChartLine, ChartArea, ChartBar, ChartPie, ChartCombo:
		return true
	case ChartFunnel:
		return tabID == FunnelTab
	}
	return false
}

// TabLayoutEntry places a metric on a tab. Positions of a tab are dense and 1-based.
type TabLayoutEntry struct {
	ProjectID string  `gorm:"primaryKey;size:64" json:"-"`
	TabID     string  `gorm:"primaryKey;size:64" json:"tab_id"`
	MetricID  string  `gorm:"primaryKey;size:64" json:"metric_id"`
	Visible   bool    `gorm:"not null" json:"visible"`
	Position  int     `gorm:"not null" json:"position"`
	Variant   Variant `gorm:"type:varchar(16);not null" json:"variant"`
}

// ChartLayoutEntry places a chart on a tab. Seq preserves seed order and is not user-editable.
type ChartLayoutEntry struct {
	ProjectID string    `gorm:"primaryKey;size:64" json:"-"`
	TabID     string    `gorm:"primaryKey;size:64" json:"tab_id"`
	ChartID   string    `gorm:"primaryKey;size:64" json:"chart_id"`
	Visible   bool      `gorm:"not null" json:"visible"`
	Type      ChartType `gorm:"type:varchar(16);not null" json:"type"`
	Seq       int       `gorm:"not null;default:0" json:"-"`
}
