package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// Evidence text marks each cited item with an inline " [Source: <url>]"
// marker. Consumers recover URLs with citationPattern: http(s) up to the
// first closing bracket, no nesting.
var (
	citationPattern      = regexp.MustCompile(`\[Source: (https?://[^\]]+)\]`)
	citationStripPattern = regexp.MustCompile(`[ \t]*\[Source: https?://[^\]]+\]`)
	multiSpace           = regexp.MustCompile(` {2,}`)
	bracketEscaper       = strings.NewReplacer("[", "%5B", "]", "%5D")
)

// Citable reports whether a link can be carried by a citation marker
func Citable(link string) bool {
	return strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://")
}

// Citation renders the marker for a link. Square brackets in the URL are
// percent-encoded so the marker never nests.
func Citation(link string) string {
	return "[Source: " + bracketEscaper.Replace(link) + "]"
}

// Serialize concatenates item snippets in order, appending a citation after
// every item with a citable link, joined by single spaces.
func Serialize(items []model.EvidenceItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if Citable(item.Source) {
			parts = append(parts, item.Snippet+" "+Citation(item.Source))
			continue
		}
		parts = append(parts, item.Snippet)
	}
	return strings.Join(parts, " ")
}

// ExtractSources returns the distinct cited URLs in first-seen order
func ExtractSources(text string) []string {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	var sources []string
	for _, m := range matches {
		url := m[1]
		if !seen[url] {
			seen[url] = true
			sources = append(sources, url)
		}
	}
	return sources
}

// StripCitations removes every citation marker, leaving clean prose
func StripCitations(text string) string {
	clean := citationStripPattern.ReplaceAllString(text, "")
	clean = multiSpace.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// BatchSources returns the distinct cited URLs across batches in order
func BatchSources(batches []model.SearchBatch) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, batch := range batches {
		for _, url := range ExtractSources(batch.Text) {
			if !seen[url] {
				seen[url] = true
				sources = append(sources, url)
			}
		}
	}
	return sources
}
