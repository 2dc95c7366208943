// Package prompt builds the mode-specific prompts sent to AI providers.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/joblens/extractor/internal/core/domain"
)

//go:embed templates/specific.md
var specificPromptRaw string

//go:embed templates/generic.md
var genericPromptRaw string

// Templates are parsed once at package init and reused on every Build call.
var (
	specificTemplate = template.Must(template.New("specific").Parse(specificPromptRaw))
	genericTemplate  = template.Must(template.New("generic").Parse(genericPromptRaw))
)

// Builder renders extraction prompts. It is a pure function over its inputs
// and safe for concurrent use.
type Builder struct{}

// NewBuilder creates a prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

type promptData struct {
	Content   string
	SourceURL string
}

// Build renders the prompt for the given mode. Unknown modes fall back to
// specific.
func (b *Builder) Build(content, sourceURL string, mode domain.Mode) (string, error) {
	tmpl := specificTemplate
	if mode == domain.ModeGeneric {
		tmpl = genericTemplate
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Content: content, SourceURL: sourceURL}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}
