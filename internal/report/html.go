package report

import (
	_ "embed"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

//go:embed style.css
var defaultStyleCSS string

var (
	reHowItWorks    = regexp.MustCompile(`(?i)<h2([^>]*)>\s*How This Report Works\s*</h2>`)
	reSectionHeader = regexp.MustCompile(`(?i)<h2([^>]*)>\s*(Dose Roadmap|Projection)\s*</h2>`)
)

// MarkdownToHTML converts report markdown to an HTML fragment.
func MarkdownToHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return content.String(), nil
}

// LoadStyle reads style.css from webDir, falling back to the embedded sheet
// when webDir is empty.
func LoadStyle(webDir string) (string, error) {
	if webDir == "" {
		return defaultStyleCSS, nil
	}
	b, err := os.ReadFile(filepath.Join(webDir, "style.css"))
	if err != nil {
		return "", fmt.Errorf("read style.css: %w", err)
	}
	return string(b), nil
}

// BuildHTML renders the full standalone document for a result.
func BuildHTML(res roadmap.Result, styleCSS string) (string, error) {
	content, err := MarkdownToHTML(BuildMarkdown(res))
	if err != nil {
		return "", err
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>GLP-1 Roadmap</title>" +
		"<style>" + styleCSS + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		"body{background:#fff !important;padding:0.6rem;} .pdf-wrap{max-width:1000px;margin:0 auto;} " +
		`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;} ` +
		`h2[data-keep-with-table="true"]{break-after:avoid;page-break-after:avoid;} ` +
		"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} .pdf-wrap{max-width:none;} .report-viewer{border:0 !important;} }" +
		"</style></head><body>" +
		"<div class='pdf-wrap'><section class='report-viewer'><div class='report-header'>" +
		"<div class='report-meta'>" + buildMetaHTML(res) + "</div>" +
		"<div class='report-badges'>" + buildBadgeHTML(res) + "</div>" +
		"</div><div class='report-html'>" + applyPrintLayoutHooks(content) + "</div></section></div>" +
		"</body></html>", nil
}

func applyPrintLayoutHooks(contentHTML string) string {
	out := reHowItWorks.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">How This Report Works</h2>`)
	// Keep table headings on the same page as their tables.
	out = reSectionHeader.ReplaceAllString(out, `<h2$1 data-keep-with-table="true">$2</h2>`)
	return out
}

func buildMetaHTML(res roadmap.Result) string {
	var out strings.Builder
	if res.DrugName != "" {
		out.WriteString("<div><strong>Medication:</strong> " + html.EscapeString(res.DrugName) + "</div>")
	}
	if res.AnalysisID != "" {
		out.WriteString("<div><strong>Reference:</strong> " + html.EscapeString(res.AnalysisID) + "</div>")
	}
	if !res.GeneratedAt.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(res.GeneratedAt.In(time.Local).Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return out.String()
}

func buildBadgeHTML(res roadmap.Result) string {
	var out strings.Builder
	if res.Stage != "" {
		out.WriteString("<span class='report-badge'>" + html.EscapeString(string(res.Stage)) + "</span>")
	}
	if res.Band != "" && res.Band != roadmap.BandPopulation {
		out.WriteString("<span class='report-badge'>" + html.EscapeString(string(res.Band)) + "</span>")
	}
	if res.Mode == roadmap.ModeDegraded {
		out.WriteString("<span class='report-badge'>DEGRADED</span>")
	}
	return out.String()
}
