// Package qa answers natural-language questions about a stored financial
// document using keyword topic matching.
package qa

import (
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Topic identifies what a question is asking about
type Topic string

const (
	TopicTotalValue      Topic = "total_value"
	TopicSecuritiesCount Topic = "securities_count"
	TopicListSecurities  Topic = "list_securities"
	TopicDocumentType    Topic = "document_type"
	TopicCurrency        Topic = "currency"
	TopicUnknown         Topic = "unknown"
)

// TopicMatch is the routing decision for a question
type TopicMatch struct {
	Topic    Topic
	Phrase   string // the keyword phrase that matched
	Priority int
	Fuzzy    bool // true when matched via the fuzzy fallback
}

// keywordRule binds a keyword phrase to a topic. Longer, more specific
// phrases carry higher priority so they win over single-word catches.
type keywordRule struct {
	phrase   string
	topic    Topic
	priority int
}

var defaultRules = []keywordRule{
	{"TOTAL VALUE", TopicTotalValue, 120},
	{"PORTFOLIO VALUE", TopicTotalValue, 120},
	{"PORTFOLIO WORTH", TopicTotalValue, 110},
	{"HOW MUCH", TopicTotalValue, 80},
	{"WORTH", TopicTotalValue, 60},
	{"HOW MANY SECURITIES", TopicSecuritiesCount, 130},
	{"HOW MANY HOLDINGS", TopicSecuritiesCount, 130},
	{"NUMBER OF SECURITIES", TopicSecuritiesCount, 120},
	{"HOW MANY", TopicSecuritiesCount, 70},
	{"WHICH SECURITIES", TopicListSecurities, 120},
	{"WHAT SECURITIES", TopicListSecurities, 120},
	{"LIST THE SECURITIES", TopicListSecurities, 120},
	{"HOLDINGS", TopicListSecurities, 60},
	{"LIST", TopicListSecurities, 50},
	{"WHAT KIND OF DOCUMENT", TopicDocumentType, 130},
	{"TYPE OF DOCUMENT", TopicDocumentType, 120},
	{"DOCUMENT TYPE", TopicDocumentType, 120},
	{"CURRENCY", TopicCurrency, 100},
}

// Engine routes questions to topics with a single Aho-Corasick pass over
// the question text. A word-level fuzzy fallback catches small typos when
// no phrase matches exactly.
type Engine struct {
	matcher *ahocorasick.Matcher
	rules   []keywordRule
	mu      sync.RWMutex
}

// NewEngine creates an engine with the built-in keyword rules
func NewEngine() *Engine {
	e := &Engine{}
	e.Build(defaultRules)
	return e
}

// Build constructs the matcher from keyword rules
func (e *Engine) Build(rules []keywordRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = rules
	if len(rules) == 0 {
		e.matcher = nil
		return
	}

	patterns := make([][]byte, len(rules))
	for i, r := range rules {
		patterns[i] = []byte(r.phrase)
	}
	e.matcher = ahocorasick.NewMatcher(patterns)
}

// Match routes a question to its best topic. Returns TopicUnknown when
// neither exact nor fuzzy matching finds a keyword.
func (e *Engine) Match(question string) TopicMatch {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return TopicMatch{Topic: TopicUnknown}
	}

	normalized := strings.ToUpper(question)

	var best *TopicMatch
	for _, idx := range e.matcher.Match([]byte(normalized)) {
		if idx < 0 || idx >= len(e.rules) {
			continue
		}
		rule := e.rules[idx]
		if best == nil || rule.priority > best.Priority {
			best = &TopicMatch{Topic: rule.topic, Phrase: rule.phrase, Priority: rule.priority}
		}
	}
	if best != nil {
		return *best
	}

	if fm := e.fuzzyMatch(normalized); fm != nil {
		return *fm
	}
	return TopicMatch{Topic: TopicUnknown}
}

// fuzzyMatch tolerates small typos by matching each phrase word against
// the question's words within a Levenshtein distance budget.
func (e *Engine) fuzzyMatch(normalized string) *TopicMatch {
	questionWords := strings.Fields(normalized)
	if len(questionWords) == 0 {
		return nil
	}

	var best *TopicMatch
	for _, rule := range e.rules {
		if !phraseMatchesFuzzy(rule.phrase, questionWords) {
			continue
		}
		if best == nil || rule.priority > best.Priority {
			best = &TopicMatch{Topic: rule.topic, Phrase: rule.phrase, Priority: rule.priority, Fuzzy: true}
		}
	}
	return best
}

func phraseMatchesFuzzy(phrase string, questionWords []string) bool {
	for _, pw := range strings.Fields(phrase) {
		if !wordMatchesFuzzy(pw, questionWords) {
			return false
		}
	}
	return true
}

func wordMatchesFuzzy(word string, questionWords []string) bool {
	budget := 1
	if len(word) > 5 {
		budget = 2
	}
	for _, qw := range questionWords {
		if fuzzy.LevenshteinDistance(word, qw) <= budget {
			return true
		}
	}
	return false
}
