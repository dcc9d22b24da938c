// Package pdf prints HTML pages to PDF with headless Chrome.
package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	defaultTimeout = 60 * time.Second
	mathJaxWait    = `() => new Promise(resolve => {
		if (window.MathJax && window.MathJax.Hub) { window.MathJax.Hub.Queue(resolve); } else { resolve(); }
	})`
)

// Options configures the browser used for printing.
type Options struct {
	ChromeBin   string        // browser binary; empty lets rod find or download one
	ControlURL  string        // DevTools URL of a running browser; skips launching
	RenderDelay time.Duration // extra wait after MathJax finished typesetting
	Timeout     time.Duration // upper bound for one conversion
	Landscape   bool
}

// Converter renders HTML documents to PDF.
type Converter struct {
	opts Options
}

// New creates a converter. A zero Timeout means one minute.
func New(opts Options) *Converter {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Converter{opts: opts}
}

// Available reports whether a local browser binary can be found.
func Available() bool {
	_, ok := launcher.LookPath()
	return ok
}

// Convert loads html into a fresh page and prints it. The launched browser is
// shut down before Convert returns.
func (c *Converter) Convert(ctx context.Context, html []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	controlURL := c.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true).Context(ctx)
		if c.opts.ChromeBin != "" {
			l = l.Bin(c.opts.ChromeBin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		defer l.Cleanup()
		defer l.Kill()
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	if c.opts.ControlURL == "" {
		defer browser.Close()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("set page content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for page load: %w", err)
	}
	if _, err := page.Eval(mathJaxWait); err != nil {
		slog.Warn("mathjax wait failed, printing anyway", "error", err)
	}
	if c.opts.RenderDelay > 0 {
		select {
		case <-time.After(c.opts.RenderDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for render: %w", ctx.Err())
		}
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		Landscape:         c.opts.Landscape,
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	slog.Debug("printed pdf", "bytes", len(data))
	return data, nil
}
