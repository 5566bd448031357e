// Package extractor implements template-driven field extraction over
// document text.
package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/findoc-labs/findoc-analyzer/internal/apperr"
	"github.com/findoc-labs/findoc-analyzer/internal/domain/templates/repository"
)

// invalidDateMarker is emitted when a date-typed capture does not parse.
const invalidDateMarker = "Invalid Date"

// dateLayouts are tried in order when coercing date fields.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2 January 2006",
	"January 2, 2006",
}

// Extract runs each rule's pattern against text and returns a field→value
// mapping. Patterns are compiled case-insensitively and only the first
// capture group is used. Rules are applied in order: when two rules target
// the same field, the last rule wins. A rule whose pattern does not match,
// or matches without a capture group, simply leaves its field absent.
//
// Empty text yields an empty map. An invalid pattern aborts the whole call
// with an error wrapping apperr.ErrPattern.
func Extract(text string, rules []repository.ExtractionRule) (map[string]any, error) {
	extracted := make(map[string]any)
	if text == "" {
		return extracted, nil
	}

	for _, rule := range rules {
		if rule.Field == "" || rule.Pattern == "" {
			continue
		}

		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", apperr.ErrPattern, rule.Field, err)
		}

		match := re.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}

		extracted[rule.Field] = coerce(strings.TrimSpace(match[1]), rule.Type)
	}

	return extracted, nil
}

// coerce converts the raw capture to the rule's declared type. Number and
// date coercion intentionally preserve the legacy behavior: unparsable
// numbers become NaN (no thousands-separator stripping) and unparsable
// dates become the "Invalid Date" marker.
func coerce(raw string, fieldType repository.FieldType) any {
	switch fieldType {
	case repository.FieldTypeNumber:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return math.NaN()
		}
		return v
	case repository.FieldTypeBoolean:
		return strings.EqualFold(raw, "true")
	case repository.FieldTypeDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.Format(time.RFC3339)
			}
		}
		return invalidDateMarker
	default:
		return raw
	}
}
