package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// NoResultSnippet is the placeholder evidence emitted when a response yields nothing
const NoResultSnippet = "No good Google Search result was found"

// ResultType selects which ranked list the backend returns
type ResultType string

const (
	ResultWeb    ResultType = "web"
	ResultNews   ResultType = "news"
	ResultImages ResultType = "images"
	ResultPlaces ResultType = "places"
)

// ParseResultType validates a configured result type; empty means web
func ParseResultType(s string) (ResultType, error) {
	switch rt := ResultType(strings.ToLower(strings.TrimSpace(s))); rt {
	case "":
		return ResultWeb, nil
	case ResultWeb, ResultNews, ResultImages, ResultPlaces:
		return rt, nil
	case "search":
		return ResultWeb, nil
	default:
		return "", fmt.Errorf("unknown result type %q (supported: web, news, images, places)", s)
	}
}

// Endpoint returns the backend path serving this result type
func (rt ResultType) Endpoint() string {
	if rt == ResultWeb || rt == "" {
		return "search"
	}
	return string(rt)
}

// Response is a search backend reply. Every string field tolerates
// non-string JSON values, which decode as absent.
type Response struct {
	AnswerBox      *AnswerBox      `json:"answerBox"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledgeGraph"`
	Organic        []RankedResult  `json:"organic"`
	News           []RankedResult  `json:"news"`
	Images         []RankedResult  `json:"images"`
	Places         []RankedResult  `json:"places"`
}

// AnswerBox is the backend's synthesized direct answer
type AnswerBox struct {
	Answer  Text `json:"answer"`
	Snippet Text `json:"snippet"`
	Link    Text `json:"link"`
}

// KnowledgeGraph is the backend's entity panel
type KnowledgeGraph struct {
	Title           Text       `json:"title"`
	Type            Text       `json:"type"`
	Description     Text       `json:"description"`
	DescriptionLink Text       `json:"descriptionLink"`
	Website         Text       `json:"website"`
	Attributes      Attributes `json:"attributes"`
}

// RankedResult is one entry of a ranked result list
type RankedResult struct {
	Title      Text       `json:"title"`
	Link       Text       `json:"link"`
	Snippet    Text       `json:"snippet"`
	Attributes Attributes `json:"attributes"`
}

// Text is a JSON string field that decodes any non-string value as empty
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

// Attribute is one key/value pair of an attributes object
type Attribute struct {
	Name  string
	Value string
}

// Attributes keeps the key order of a JSON object so extraction output is
// stable across runs.
type Attributes []Attribute

// UnmarshalJSON implements json.Unmarshaler
func (a *Attributes) UnmarshalJSON(data []byte) error {
	*a = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		// Not an object: no attributes
		return nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		*a = append(*a, Attribute{Name: key, Value: formatValue(value)})
	}
	_, err = dec.Token()
	return err
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any, map[string]any:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	default:
		return fmt.Sprint(val)
	}
}

// ParseResponse decodes a raw backend reply
func ParseResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &resp, nil
}

// Ranked returns the ranked list for a result type
func (r *Response) Ranked(rt ResultType) []RankedResult {
	switch rt {
	case ResultNews:
		return r.News
	case ResultImages:
		return r.Images
	case ResultPlaces:
		return r.Places
	default:
		return r.Organic
	}
}

var newlineRun = regexp.MustCompile(`\s*[\r\n]+\s*`)

// collapseNewlines replaces every newline run with a single space
func collapseNewlines(s string) string {
	return strings.TrimSpace(newlineRun.ReplaceAllString(s, " "))
}

// EvidenceExtractor turns backend replies into ordered evidence items
type EvidenceExtractor struct {
	resultType ResultType
	topK       int
}

// NewEvidenceExtractor creates an extractor for one result type. topK below 1
// is treated as 1.
func NewEvidenceExtractor(resultType ResultType, topK int) *EvidenceExtractor {
	if topK < 1 {
		topK = 1
	}
	if resultType == "" {
		resultType = ResultWeb
	}
	return &EvidenceExtractor{resultType: resultType, topK: topK}
}

// Extract applies the extraction priority: answer box, knowledge graph, then
// up to topK ranked results. It never returns an empty slice.
func (e *EvidenceExtractor) Extract(resp *Response) []model.EvidenceItem {
	var items []model.EvidenceItem
	if resp == nil {
		return noResult()
	}

	if box := resp.AnswerBox; box != nil {
		items = append(items, answerBoxItems(box)...)
	}

	if kg := resp.KnowledgeGraph; kg != nil {
		items = append(items, knowledgeGraphItems(kg)...)
	}

	for i, result := range resp.Ranked(e.resultType) {
		if i >= e.topK {
			break
		}
		items = append(items, rankedItems(result, i+1)...)
	}

	if len(items) == 0 {
		return noResult()
	}
	return items
}

// citableLink returns the first candidate that a citation marker can carry.
// Other links are dropped so an item's Source always matches its marker.
func citableLink(candidates ...Text) string {
	for _, c := range candidates {
		if link := strings.TrimSpace(string(c)); Citable(link) {
			return link
		}
	}
	return ""
}

func answerBoxItems(box *AnswerBox) []model.EvidenceItem {
	var items []model.EvidenceItem
	answer := strings.TrimSpace(string(box.Answer))
	link := citableLink(box.Link)

	if answer != "" {
		items = append(items, model.EvidenceItem{
			Snippet: answer,
			Source:  link,
			Title:   "Answer Box",
			Section: model.SectionAnswerBox,
		})
	}

	snippet := collapseNewlines(string(box.Snippet))
	if snippet != "" && snippet != answer {
		items = append(items, model.EvidenceItem{
			Snippet: snippet,
			Source:  link,
			Title:   "Answer Box",
			Section: model.SectionAnswerBox,
		})
	}
	return items
}

func knowledgeGraphItems(kg *KnowledgeGraph) []model.EvidenceItem {
	var items []model.EvidenceItem
	title := strings.TrimSpace(string(kg.Title))
	link := citableLink(kg.DescriptionLink, kg.Website)

	if entityType := strings.TrimSpace(string(kg.Type)); entityType != "" {
		items = append(items, model.EvidenceItem{
			Snippet: fmt.Sprintf("%s: %s.", title, entityType),
			Source:  link,
			Title:   "Knowledge Graph",
			Section: model.SectionKnowledgeGraph,
		})
	}

	if description := strings.TrimSpace(string(kg.Description)); description != "" {
		items = append(items, model.EvidenceItem{
			Snippet: description,
			Source:  link,
			Title:   title,
			Section: model.SectionKnowledgeGraph,
		})
	}

	for _, attr := range kg.Attributes {
		items = append(items, model.EvidenceItem{
			Snippet: fmt.Sprintf("%s %s: %s.", title, attr.Name, attr.Value),
			Source:  link,
			Title:   title,
			Section: model.SectionKnowledgeGraph,
		})
	}
	return items
}

func rankedItems(result RankedResult, rank int) []model.EvidenceItem {
	var items []model.EvidenceItem
	title := strings.TrimSpace(string(result.Title))
	if title == "" {
		title = "Search Result"
	}
	link := citableLink(result.Link)

	if snippet := strings.TrimSpace(string(result.Snippet)); snippet != "" {
		items = append(items, model.EvidenceItem{
			Snippet: snippet,
			Source:  link,
			Title:   title,
			Section: model.SectionRanked,
			Rank:    rank,
		})
	}

	for _, attr := range result.Attributes {
		items = append(items, model.EvidenceItem{
			Snippet: fmt.Sprintf("%s: %s.", attr.Name, attr.Value),
			Source:  link,
			Title:   title,
			Section: model.SectionRanked,
			Rank:    rank,
		})
	}
	return items
}

func noResult() []model.EvidenceItem {
	return []model.EvidenceItem{{
		Snippet: NoResultSnippet,
		Title:   "No Result",
		Section: model.SectionNone,
	}}
}
