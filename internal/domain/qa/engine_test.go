package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineMatch(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		question string
		topic    Topic
	}{
		{"total value", "What is the total value of the portfolio?", TopicTotalValue},
		{"worth", "How much is this portfolio worth?", TopicTotalValue},
		{"count", "How many securities does the statement contain?", TopicSecuritiesCount},
		{"count holdings", "how many holdings are there", TopicSecuritiesCount},
		{"list", "Which securities are in the document?", TopicListSecurities},
		{"document type", "What kind of document is this?", TopicDocumentType},
		{"currency", "What currency is the statement in?", TopicCurrency},
		{"unknown", "What is the meaning of life?", TopicUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			match := engine.Match(tc.question)
			assert.Equal(t, tc.topic, match.Topic)
		})
	}
}

func TestEngineMatchIsCaseInsensitive(t *testing.T) {
	engine := NewEngine()

	upper := engine.Match("WHAT IS THE TOTAL VALUE?")
	lower := engine.Match("what is the total value?")

	assert.Equal(t, TopicTotalValue, upper.Topic)
	assert.Equal(t, upper.Topic, lower.Topic)
}

func TestEngineSpecificPhraseWins(t *testing.T) {
	engine := NewEngine()

	// "how many securities" contains both the generic "how many" and the
	// specific count phrase; the specific one must win.
	match := engine.Match("how many securities are listed?")

	assert.Equal(t, TopicSecuritiesCount, match.Topic)
	assert.Equal(t, "HOW MANY SECURITIES", match.Phrase)
}

func TestEngineFuzzyFallback(t *testing.T) {
	engine := NewEngine()

	match := engine.Match("what currancy is this?")

	assert.Equal(t, TopicCurrency, match.Topic)
	assert.True(t, match.Fuzzy)
}

func TestEngineEmptyQuestion(t *testing.T) {
	engine := NewEngine()

	assert.Equal(t, TopicUnknown, engine.Match("").Topic)
}

func BenchmarkEngineMatch(b *testing.B) {
	engine := NewEngine()
	questions := []string{
		"What is the total value of the portfolio?",
		"How many securities does the statement contain?",
		"What currency is the statement in?",
		"What is the meaning of life?",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Match(questions[i%len(questions)])
	}
}
