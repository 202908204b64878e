package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/firecheck/internal/extract"
	"github.com/ppiankov/firecheck/internal/model"
)

// Renderer writes verification reports as JSON, Markdown or HTML
type Renderer struct{}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes the report as indented JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteMarkdown(w, report) })
}

// RenderHTML writes the report as a standalone HTML page to path
func (r *Renderer) RenderHTML(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteHTML(w, report) })
}

func writeFile(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// searchView is a search batch prepared for display: citation markers are
// stripped from the prose and listed separately
type searchView struct {
	Query   string
	Prose   string
	Sources []model.SourceRef
}

func searchViews(report *model.Report) []searchView {
	tiers := make(map[string]model.AuthorityTier, len(report.Sources))
	for _, src := range report.Sources {
		tiers[src.URL] = src.Authority
	}

	views := make([]searchView, 0, len(report.Searches.GoogleSearches))
	for _, batch := range report.Searches.GoogleSearches {
		view := searchView{
			Query: batch.Query,
			Prose: extract.StripCitations(batch.Text),
		}
		for _, u := range extract.ExtractSources(batch.Text) {
			view.Sources = append(view.Sources, model.SourceRef{URL: u, Authority: tiers[u]})
		}
		views = append(views, view)
	}
	return views
}

func verdictLabel(report *model.Report) string {
	if report.Result == nil {
		return "UNVERIFIED"
	}
	return string(report.Result.Answer)
}

func summaryLine(report *model.Report) string {
	return fmt.Sprintf("Searches: %d | Iterations: %d | Tokens: %d in / %d out | Time: %.1fs",
		len(report.Searches.GoogleSearches),
		report.Iterations,
		report.Usage.InputTokens,
		report.Usage.OutputTokens,
		report.Duration.Seconds())
}

// WriteMarkdown renders the report as Markdown
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	b.WriteString("# Claim Verification Report\n\n")
	fmt.Fprintf(&b, "**Claim:** %s\n\n", report.Claim)
	fmt.Fprintf(&b, "**Verdict:** %s\n\n", verdictLabel(report))
	if report.Label != "" {
		fmt.Fprintf(&b, "**Expected:** %s\n\n", report.Label)
	}
	fmt.Fprintf(&b, "**Model:** %s  \n", report.Model)
	fmt.Fprintf(&b, "**Run:** %s  \n", report.RunID)
	fmt.Fprintf(&b, "%s\n\n", summaryLine(report))

	if report.Error != "" {
		fmt.Fprintf(&b, "> **Error:** %s\n\n", report.Error)
	}

	views := searchViews(report)
	if len(views) > 0 {
		b.WriteString("## Evidence from Web Searches\n\n")
		for i, view := range views {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, view.Query)
			fmt.Fprintf(&b, "%s\n\n", view.Prose)
			if len(view.Sources) > 0 {
				b.WriteString("Sources:\n")
				for _, src := range view.Sources {
					fmt.Fprintf(&b, "- <%s> (%s)\n", src.URL, src.Authority)
				}
				b.WriteString("\n")
			}
		}
	}

	if report.Result != nil && report.Result.Response != "" {
		b.WriteString("## Model Reasoning\n\n")
		for _, line := range strings.Split(report.Result.Response, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// WriteHTML renders the report as a standalone HTML document
func (r *Renderer) WriteHTML(w io.Writer, report *model.Report) error {
	verdictClass := "verdict unverified"
	if report.Result != nil {
		verdictClass = "verdict " + strings.ToLower(string(report.Result.Answer))
	}

	body := element(atom.Body, nil,
		element(atom.H1, nil, text("Claim Verification Report")),
		element(atom.P, attrs("class", "claim"), text(report.Claim)),
		element(atom.P, attrs("class", verdictClass), text(verdictLabel(report))),
		element(atom.P, attrs("class", "meta"), text(fmt.Sprintf("Model: %s | Run: %s", report.Model, report.RunID))),
		element(atom.P, attrs("class", "meta"), text(summaryLine(report))),
	)

	if report.Label != "" {
		body.AppendChild(element(atom.P, attrs("class", "meta"), text("Expected: "+report.Label)))
	}
	if report.Error != "" {
		body.AppendChild(element(atom.P, attrs("class", "error"), text("Error: "+report.Error)))
	}

	views := searchViews(report)
	if len(views) > 0 {
		body.AppendChild(element(atom.H2, nil, text("Evidence from Web Searches")))
	}
	for i, view := range views {
		card := element(atom.Div, attrs("class", "search-card"),
			element(atom.H3, nil, text(fmt.Sprintf("%d. %s", i+1, view.Query))),
			element(atom.P, nil, text(view.Prose)),
		)
		if len(view.Sources) > 0 {
			list := element(atom.Ul, attrs("class", "sources"))
			for _, src := range view.Sources {
				list.AppendChild(element(atom.Li, attrs("class", "tier-"+src.Authority.String()),
					element(atom.A, attrs("href", src.URL, "rel", "noopener noreferrer"), text(src.URL)),
					text(" ("+src.Authority.String()+")"),
				))
			}
			card.AppendChild(list)
		}
		body.AppendChild(card)
	}

	if report.Result != nil && report.Result.Response != "" {
		body.AppendChild(element(atom.H2, nil, text("Model Reasoning")))
		body.AppendChild(element(atom.Pre, attrs("class", "response"), text(report.Result.Response)))
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(element(atom.Html, attrs("lang", "en"),
		element(atom.Head, nil,
			element(atom.Meta, attrs("charset", "utf-8")),
			element(atom.Title, nil, text("firecheck: "+report.Claim)),
			element(atom.Style, nil, text(reportCSS)),
		),
		body,
	))

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

const reportCSS = `body{font-family:sans-serif;max-width:52rem;margin:2rem auto;padding:0 1rem;color:#222}
.claim{font-size:1.2rem;font-style:italic}
.verdict{font-size:1.6rem;font-weight:bold}
.verdict.true{color:#1a7f37}.verdict.false{color:#cf222e}.verdict.unverified{color:#9a6700}
.meta{color:#555;font-size:.9rem}.error{color:#cf222e}
.search-card{border:1px solid #ddd;border-radius:6px;padding:.5rem 1rem;margin:1rem 0}
.tier-primary{font-weight:bold}
pre.response{white-space:pre-wrap;background:#f6f8fa;padding:1rem}`

func element(a atom.Atom, attr []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attr}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// attrs builds attributes from key, value pairs
func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}
