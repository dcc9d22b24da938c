package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pavelanni/quizfeedback/internal/render"
)

func TestNewDefaults(t *testing.T) {
	c := New(Options{})
	if c.opts.Timeout != defaultTimeout {
		t.Errorf("expected default timeout %v, got %v", defaultTimeout, c.opts.Timeout)
	}
	c = New(Options{Timeout: 5 * time.Second})
	if c.opts.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", c.opts.Timeout)
	}
}

func TestConvert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if !Available() {
		t.Skip("no chrome binary found")
	}

	page, err := render.HTMLDocument(context.Background(), "# Feedback Report\n\n## Q1\n- **Feedback:** ok",
		render.DocumentOptions{Title: "Report", MathJaxURL: "about:blank"})
	if err != nil {
		t.Fatalf("HTMLDocument: %v", err)
	}

	data, err := New(Options{Timeout: 30 * time.Second}).Convert(context.Background(), page)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestConvertCanceled(t *testing.T) {
	if !Available() {
		t.Skip("no chrome binary found")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}).Convert(ctx, []byte("<html></html>")); err == nil {
		t.Error("expected error for canceled context")
	}
}
