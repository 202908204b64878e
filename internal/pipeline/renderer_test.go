package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ppiankov/firecheck/internal/model"
)

func sampleReport() *model.Report {
	return &model.Report{
		RunID:  "run-1",
		Claim:  "The Eiffel Tower is in Paris <France>.",
		Label:  "TRUE",
		Model:  "google:gemini-2.5-flash",
		Status: model.StatusDone,
		Result: &model.Verdict{Answer: model.AnswerTrue, Response: "It is.\nANSWER: TRUE"},
		Searches: model.SearchLog{GoogleSearches: []model.SearchBatch{{
			Query: "Eiffel Tower location",
			Text:  "Paris [Source: https://x.example/a] Champ de Mars. [Source: https://en.wikipedia.org/wiki/Eiffel_Tower]",
		}}},
		Usage:      model.Usage{InputTokens: 300, OutputTokens: 40},
		Iterations: 2,
		Sources: []model.SourceRef{
			{URL: "https://x.example/a", Authority: model.TierTertiary},
			{URL: "https://en.wikipedia.org/wiki/Eiffel_Tower", Authority: model.TierSecondary},
		},
		Duration: 2500 * time.Millisecond,
	}
}

func TestRenderer_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer().WriteJSON(&buf, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	result := decoded["result"].(map[string]any)
	assert.Equal(t, "TRUE", result["answer"])

	searches := decoded["searches"].(map[string]any)["google_searches"].([]any)
	require.Len(t, searches, 1)
	first := searches[0].(map[string]any)
	assert.Equal(t, "Eiffel Tower location", first["query"])
	assert.Contains(t, first["result"], "[Source: https://x.example/a]")

	sources := decoded["sources"].([]any)
	assert.Equal(t, "secondary", sources[1].(map[string]any)["authority"])
}

func TestRenderer_WriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer().WriteMarkdown(&buf, sampleReport()))
	md := buf.String()

	assert.Contains(t, md, "**Verdict:** TRUE")
	assert.Contains(t, md, "### 1. Eiffel Tower location")
	assert.Contains(t, md, "Paris Champ de Mars.\n", "citations stripped from prose")
	assert.NotContains(t, md, "[Source:")
	assert.Contains(t, md, "- <https://en.wikipedia.org/wiki/Eiffel_Tower> (secondary)")
	assert.Contains(t, md, "> ANSWER: TRUE")
	assert.Contains(t, md, "Tokens: 300 in / 40 out")
}

func TestRenderer_WriteMarkdown_Unverified(t *testing.T) {
	report := sampleReport()
	report.Result = nil
	report.Status = model.StatusFailed
	report.Error = "search failed"

	var buf bytes.Buffer
	require.NoError(t, NewRenderer().WriteMarkdown(&buf, report))

	assert.Contains(t, buf.String(), "**Verdict:** UNVERIFIED")
	assert.Contains(t, buf.String(), "**Error:** search failed")
	assert.NotContains(t, buf.String(), "Model Reasoning")
}

func TestRenderer_WriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer().WriteHTML(&buf, sampleReport()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "Paris &lt;France&gt;", "claim text is escaped")
	assert.Contains(t, out, `class="verdict true"`)
	assert.NotContains(t, out, "[Source:")

	doc, err := html.Parse(strings.NewReader(out))
	require.NoError(t, err)

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" {
					links = append(links, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	assert.Equal(t, []string{"https://x.example/a", "https://en.wikipedia.org/wiki/Eiffel_Tower"}, links)
}

func TestRenderer_RenderFiles(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer()
	report := sampleReport()

	paths := map[string]func(*model.Report, string) error{
		filepath.Join(dir, "report.json"): r.RenderJSON,
		filepath.Join(dir, "report.md"):   r.RenderMarkdown,
		filepath.Join(dir, "report.html"): r.RenderHTML,
	}
	for path, render := range paths {
		require.NoError(t, render(report, path))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEmpty(t, data, path)
	}

	err := r.RenderJSON(report, filepath.Join(dir, "missing", "report.json"))
	assert.Error(t, err)
}
