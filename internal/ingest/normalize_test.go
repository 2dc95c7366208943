package ingest

import (
	"strings"
	"testing"
)

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		content string
		expect  bool
	}{
		{"<!DOCTYPE html><html><body>hi</body></html>", true},
		{"<div class=\"posting\">Senior Engineer</div>", true},
		{"<p>We are hiring</p>", true},
		{"Plain text job posting. Salary < 100k > 50k.", false},
		{"Senior Engineer at Acme", false},
	}

	for _, tt := range tests {
		if got := LooksLikeHTML(tt.content); got != tt.expect {
			t.Errorf("LooksLikeHTML(%q) = %v, want %v", tt.content, got, tt.expect)
		}
	}
}

func TestNormalize_PlainText(t *testing.T) {
	in := "Senior Engineer  \n\n\n\nAcme Corp\r\nRemote"
	out := Normalize(in)

	if strings.Contains(out, "\r") {
		t.Error("Expected carriage returns to be removed")
	}
	if strings.Contains(out, "\n\n\n") {
		t.Error("Expected blank line runs to collapse")
	}
	if !strings.Contains(out, "Acme Corp") {
		t.Errorf("Expected content to survive normalization, got %q", out)
	}
}

func TestNormalize_HTML(t *testing.T) {
	in := `<html><body>
		<article>
			<h1>Senior Go Engineer</h1>
			<p>Acme Corp is hiring a senior engineer to build distributed systems.
			You will own services end to end and mentor the team.</p>
			<p>Requirements: Go, PostgreSQL, Redis. Remote friendly.</p>
		</article>
	</body></html>`

	out := Normalize(in)

	if strings.Contains(out, "<p>") || strings.Contains(out, "<html>") {
		t.Errorf("Expected HTML tags to be stripped, got %q", out)
	}
	if !strings.Contains(out, "Senior Go Engineer") {
		t.Errorf("Expected posting text to survive, got %q", out)
	}
}
