package realclear

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"

	"realclear-polls/models"
	"realclear-polls/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Renderer turns a URL into the final HTML of the page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// RenderFunc adapts a plain function to Renderer.
type RenderFunc func(ctx context.Context, url string) (string, error)

func (f RenderFunc) Render(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

// ChromeRenderer loads pages in a fresh headless Chrome per call, waits a
// fixed settle delay for client-side rendering and captures the DOM.
type ChromeRenderer struct {
	ChromeBin string
	Settle    time.Duration
	Timeout   time.Duration
	Logger    *utils.Logger
}

// Render opens a browser, navigates, sleeps Settle, then captures
// document.documentElement.outerHTML. The browser is torn down before
// Render returns, whatever the outcome.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	chromeBin := r.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	if r.Logger != nil {
		r.Logger.Debug("[render] chrome %q -> %s (settle %v)", chromeBin, url, r.Settle)
	}

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(r.Settle),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &models.Error{Kind: models.ErrTransientRender, URL: url, Row: -1, Err: err}
	}
	return html, nil
}

// HTTPRenderer fetches pages without executing scripts. It serves static
// pages and saved fixtures.
type HTTPRenderer struct {
	client *resty.Client
}

// NewHTTPRenderer creates an HTTPRenderer with the given request timeout.
func NewHTTPRenderer(timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent),
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	res, err := r.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &models.Error{Kind: models.ErrTransientRender, URL: url, Row: -1, Err: err}
	}

	status := res.StatusCode()
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return "", &models.Error{
			Kind: models.ErrTransientRender,
			URL:  url,
			Row:  -1,
			Err:  fmt.Errorf("status %d", status),
		}
	case status >= 400:
		return "", fmt.Errorf("render %s: status %d", url, status)
	}
	return res.String(), nil
}

// findChromeBinary locates a Chrome/Chromium binary, "" lets chromedp search.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
