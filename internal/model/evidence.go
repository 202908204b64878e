package model

// EvidenceItem is one extracted fact or snippet returned by a search backend.
// Items are never mutated after creation.
type EvidenceItem struct {
	Snippet string  `json:"snippet"`
	Source  string  `json:"source,omitempty"` // Link supplied by the originating section
	Title   string  `json:"title"`
	Section Section `json:"section"`
	Rank    int     `json:"rank,omitempty"` // 1-based position for ranked results, 0 otherwise
}

// Section identifies which part of a backend response produced an item
type Section string

const (
	SectionAnswerBox      Section = "answer_box"
	SectionKnowledgeGraph Section = "knowledge_graph"
	SectionRanked         Section = "ranked"
	SectionNone           Section = "none" // Placeholder when nothing was found
)

// SearchBatch holds every evidence item produced by one search query
type SearchBatch struct {
	Query string         `json:"query"`
	Items []EvidenceItem `json:"items"`
	Text  string         `json:"result"` // Serialized evidence with inline citations
}

// Usage counts tokens consumed by LLM calls
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the sum of two usage records
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Total returns input plus output tokens
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Government, academic, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites, aggregators
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// MarshalText renders the tier by name in JSON and YAML output
func (t AuthorityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// SourceRef is a distinct cited URL with its authority classification
type SourceRef struct {
	URL       string        `json:"url"`
	Authority AuthorityTier `json:"authority"`
}
