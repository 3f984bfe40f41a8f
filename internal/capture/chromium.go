package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"rentdesk/internal/fsutil"
	appLog "rentdesk/internal/log"
)

// Default viewport for the year overview: four month columns, three rows.
const (
	DefaultWidth   = 1400
	DefaultHeight  = 1000
	DefaultTimeout = 30 * time.Second
)

// readySelector is set by pages once they are fully rendered.
const readySelector = `[data-ready="true"]`

// CaptureOptions defines parameters for a Chromium-based screenshot capture.
type CaptureOptions struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/objects/<id>/year?year=2025".
	URL string

	// OutputPath is where the PNG is written.
	OutputPath string

	// Width and Height are the viewport in pixels. Zero uses the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture. Zero uses DefaultTimeout.
	Timeout time.Duration

	// ExecPath overrides the Chrome/Chromium binary lookup.
	ExecPath string
}

func (o *CaptureOptions) normalize() error {
	if o.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

func (o CaptureOptions) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(o.Width, o.Height),
	)
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	return opts
}

// CapturePNG opens opts.URL in headless Chromium, waits for the page to
// mark itself ready and writes a full-page PNG to opts.OutputPath.
func CapturePNG(parentCtx context.Context, opts CaptureOptions) error {
	if err := opts.normalize(); err != nil {
		return err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parentCtx, opts.allocatorOptions()...)
	defer cancelAlloc()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	appLog.Debug("capture start", "url", opts.URL, "width", opts.Width, "height", opts.Height)

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let the last paint settle.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := fsutil.WriteFileAtomic(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	appLog.Info("capture written", "path", opts.OutputPath, "bytes", len(png))
	return nil
}
