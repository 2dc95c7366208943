package prompt

import (
	"strings"
	"testing"

	"github.com/joblens/extractor/internal/core/domain"
)

func TestBuild_IncludesContentAndSource(t *testing.T) {
	b := NewBuilder()

	for _, mode := range []domain.Mode{domain.ModeSpecific, domain.ModeGeneric} {
		out, err := b.Build("We are hiring a Go engineer.", "https://x.test/job/1", mode)
		if err != nil {
			t.Fatalf("Build(%s) failed: %v", mode, err)
		}
		if !strings.Contains(out, "We are hiring a Go engineer.") {
			t.Errorf("%s: prompt is missing the page content", mode)
		}
		if !strings.Contains(out, "https://x.test/job/1") {
			t.Errorf("%s: prompt is missing the source URL", mode)
		}
		if !strings.Contains(out, "company_name") {
			t.Errorf("%s: prompt is missing the output schema", mode)
		}
	}
}

func TestBuild_ModesDiffer(t *testing.T) {
	b := NewBuilder()

	specific, err := b.Build("content", "https://x.test/job/1", domain.ModeSpecific)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	generic, err := b.Build("content", "https://x.test/job/1", domain.ModeGeneric)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if specific == generic {
		t.Error("Expected mode-specific prompts to differ")
	}
}

func TestBuild_UnknownModeFallsBackToSpecific(t *testing.T) {
	b := NewBuilder()

	unknown, err := b.Build("content", "https://x.test/job/1", domain.Mode("exotic"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	specific, _ := b.Build("content", "https://x.test/job/1", domain.ModeSpecific)
	if unknown != specific {
		t.Error("Expected unknown modes to render the specific template")
	}
}
