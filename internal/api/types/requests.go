package types

type ProjectCreateRequest struct {
	Name      string            `json:"name" validate:"required,max=200"`
	Template  string            `json:"template" validate:"required,oneof=launch perpetual subscription"`
	Demo      bool              `json:"demo"`
	SourceURL string            `json:"source_url" validate:"omitempty,url"`
	Mapping   map[string]string `json:"mapping"`
}

type SourceUpdateRequest struct {
	SourceURL string            `json:"source_url" validate:"omitempty,url"`
	Mapping   map[string]string `json:"mapping"`
}

// CustomMetricRequest leaves name checks to the session so blank names report invalid_name.
type CustomMetricRequest struct {
	Name      string `json:"name"`
	ValueType string `json:"value_type" validate:"required"`
}

type EntryUpdateRequest struct {
	Visible *bool   `json:"visible"`
	Variant *string `json:"variant" validate:"omitempty,oneof=card hero"`
}

type MoveRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

type ChartUpdateRequest struct {
	Visible *bool   `json:"visible"`
	Type    *string `json:"type" validate:"omitempty,oneof=line area bar pie combo funnel"`
}

type OverrideRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

type CaptureRequest struct {
	Date string `json:"date" validate:"omitempty,isodate"`
}
