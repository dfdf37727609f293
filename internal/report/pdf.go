package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

// PDFRenderer produces a PDF for one result.
type PDFRenderer interface {
	Render(ctx context.Context, res roadmap.Result) ([]byte, error)
}

type ChromiumPDFRenderer struct {
	webDir     string
	chromePath string
	timeout    time.Duration
	styleOnce  sync.Once
	styleCSS   string
	styleErr   error
}

func NewChromiumPDFRenderer(webDir string) *ChromiumPDFRenderer {
	return &ChromiumPDFRenderer{
		webDir:     webDir,
		chromePath: detectChromePath(),
		timeout:    30 * time.Second,
	}
}

// A4 portrait, in inches.
const (
	a4Width    = 8.27
	a4Height   = 11.69
	marginSide = 0.45
	marginTop  = 0.5
	marginFoot = 0.75
)

// Render prints the HTML report for res. Every page footer carries the
// analysis id so a printed page can be traced back to its inputs.
func (r *ChromiumPDFRenderer) Render(ctx context.Context, res roadmap.Result) ([]byte, error) {
	styleCSS, err := r.loadStyleCSS()
	if err != nil {
		return nil, err
	}
	htmlDoc, err := BuildHTML(res, styleCSS)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOptions(r.chromePath)...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var pdf []byte
	params := printParams(res)
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(htmlDataURL(htmlDoc)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var perr error
			pdf, _, perr = params.Do(ctx)
			return perr
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print roadmap %s: %w", res.AnalysisID, err)
	}
	return pdf, nil
}

// allocatorOptions runs headless Chrome inside containers, where /dev/shm
// is small and there is no GPU or user namespace sandbox.
func allocatorOptions(chromePath string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}
	return opts
}

func printParams(res roadmap.Result) *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<div></div>`).
		WithFooterTemplate(footerTemplate(res)).
		WithPaperWidth(a4Width).
		WithPaperHeight(a4Height).
		WithMarginTop(marginTop).
		WithMarginBottom(marginFoot).
		WithMarginLeft(marginSide).
		WithMarginRight(marginSide)
}

// footerTemplate uses Chrome's pageNumber and totalPages placeholders.
func footerTemplate(res roadmap.Result) string {
	return fmt.Sprintf(`<div style="width:100%%;font-size:8px;color:#666;padding:0 12px;display:flex;justify-content:space-between;">`+
		`<span>%s roadmap &middot; %s</span>`+
		`<span>Page <span class="pageNumber"></span> of <span class="totalPages"></span></span></div>`,
		html.EscapeString(res.DrugName), html.EscapeString(res.AnalysisID))
}

func htmlDataURL(doc string) string {
	return "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(doc))
}

func (r *ChromiumPDFRenderer) loadStyleCSS() (string, error) {
	r.styleOnce.Do(func() {
		r.styleCSS, r.styleErr = LoadStyle(r.webDir)
	})
	return r.styleCSS, r.styleErr
}

func detectChromePath() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
