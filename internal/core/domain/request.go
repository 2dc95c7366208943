package domain

// ExtractionRequest carries one piece of source content through the pipeline
type ExtractionRequest struct {
	Content   string         `json:"content"`
	SourceURL string         `json:"source_url,omitempty"`
	Mode      Mode           `json:"mode,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	ImageData []byte         `json:"image_data,omitempty"`
	Options   RequestOptions `json:"options,omitempty"`
}

type Mode string

const (
	// ModeSpecific targets pages known to hold exactly one posting
	ModeSpecific Mode = "specific"
	// ModeGeneric handles arbitrary pages that may bury the posting in noise
	ModeGeneric Mode = "generic"
)

// RequestOptions are per-request overrides for provider invocation
type RequestOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}
