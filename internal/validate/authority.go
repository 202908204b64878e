// Package validate classifies cited sources by authority.
package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/firecheck/internal/model"
)

// AuthorityClassifier classifies sources into authority tiers
type AuthorityClassifier struct {
	domainMap    map[string]model.AuthorityTier
	domains      []domainRule // Sorted longest first so the most specific suffix wins
	pathPatterns []*compiledPattern
}

type domainRule struct {
	suffix string
	tier   model.AuthorityTier
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.AuthorityTier
}

// NewAuthorityClassifier creates a new authority classifier. Invalid path
// patterns are skipped.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	classifier := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(config.DomainMap)),
	}

	for host, tier := range config.DomainMap {
		classifier.domainMap[normalizeHost(host)] = ParseTier(tier)
	}

	for _, domain := range config.PrimaryDomains {
		classifier.addDomain(domain, model.TierPrimary)
	}
	for _, domain := range config.SecondaryDomains {
		classifier.addDomain(domain, model.TierSecondary)
	}
	sortRules(classifier.domains)

	for _, pathPattern := range config.PathPatterns {
		if re, err := regexp.Compile(pathPattern.Pattern); err == nil {
			classifier.pathPatterns = append(classifier.pathPatterns, &compiledPattern{
				pattern: re,
				tier:    ParseTier(pathPattern.Tier),
			})
		}
	}

	return classifier
}

func (a *AuthorityClassifier) addDomain(domain string, tier model.AuthorityTier) {
	domain = strings.TrimPrefix(normalizeHost(domain), ".")
	if domain == "" {
		return
	}
	a.domains = append(a.domains, domainRule{suffix: domain, tier: tier})
}

// sortRules orders rules by descending suffix length; primary wins ties
func sortRules(rules []domainRule) {
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && longer(rules[j], rules[j-1]); j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
}

func longer(a, b domainRule) bool {
	if len(a.suffix) != len(b.suffix) {
		return len(a.suffix) > len(b.suffix)
	}
	return a.tier < b.tier
}

// Classify classifies a URL into an authority tier
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierTertiary
	}

	host := normalizeHost(parsed.Hostname())

	// Explicit host mappings win over everything else
	if tier, ok := a.domainMap[host]; ok {
		return tier
	}

	for _, rule := range a.domains {
		if host == rule.suffix || strings.HasSuffix(host, "."+rule.suffix) {
			return rule.tier
		}
	}

	for _, cp := range a.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	// Government and academic TLDs are primary even when not configured
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".edu") || strings.HasSuffix(host, ".ac.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// ClassifyAll classifies each URL, preserving order
func (a *AuthorityClassifier) ClassifyAll(urls []string) []model.SourceRef {
	refs := make([]model.SourceRef, 0, len(urls))
	for _, u := range urls {
		refs = append(refs, model.SourceRef{URL: u, Authority: a.Classify(u)})
	}
	return refs
}

// ParseTier converts a tier name or number to an AuthorityTier. Unknown
// values are tertiary.
func ParseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}
