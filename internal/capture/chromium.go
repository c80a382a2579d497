// Package capture rasterizes HTML documents to PNG through headless
// Chromium. It is the production implementation of booklet.Renderer;
// anything that only needs the interface should depend on that instead.
package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Default capture parameters for a month grid page. The width matches
// the grid document's fixed CSS width; height only sets the initial
// viewport, FullScreenshot captures the whole document.
const (
	DefaultWidth      = 760
	DefaultHeight     = 1000
	DefaultTimeoutSec = 30
)

// Options defines parameters for a Chromium-based HTML capture.
type Options struct {
	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds one render. If zero, DefaultTimeoutSec is used.
	Timeout time.Duration
}

// Chromium renders HTML documents in a headless browser. The zero
// value is usable with default options.
type Chromium struct {
	opts Options
}

// NewChromium returns a renderer with the given options.
func NewChromium(opts Options) *Chromium {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return &Chromium{opts: opts}
}

// RenderPNG loads the HTML document through a data: URL in a fresh
// headless Chromium context, waits for the body to be ready, and
// captures a full-page PNG screenshot.
func (c *Chromium) RenderPNG(parentCtx context.Context, html string) ([]byte, error) {
	opts := c.opts
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	url := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(200 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	return png, nil
}
