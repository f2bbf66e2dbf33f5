package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReview_FullGrammar(t *testing.T) {
	text := `
WHAT_WORKED: entered on a pullback to the 20-day moving average
WHAT_FAILED: held through earnings despite the no-earnings rule
LESSON: always check the earnings calendar before opening a short put
SHOULD_REPEAT: NO
NEW_RULE: never open a new short put within 5 days of earnings
RULE_CATEGORY: entry
FULL_REVIEW: a solid trade overall, marred by one avoidable mistake
`
	r := ParseReview(text)
	assert.Equal(t, "entered on a pullback to the 20-day moving average", r.WhatWorked)
	assert.Equal(t, "held through earnings despite the no-earnings rule", r.WhatFailed)
	assert.False(t, r.ShouldRepeat)
	assert.Equal(t, "never open a new short put within 5 days of earnings", r.NewRule)
	assert.Equal(t, "entry", r.RuleCategory)
}

func TestParseReview_NewRuleNoneIsBlank(t *testing.T) {
	text := `
NEW_RULE: none
SHOULD_REPEAT: yes
`
	r := ParseReview(text)
	assert.Empty(t, r.NewRule)
	assert.True(t, r.ShouldRepeat)
}

func TestParseReview_MissingRuleCategoryDefaultsGeneral(t *testing.T) {
	r := ParseReview("LESSON: be patient")
	assert.Equal(t, "general", r.RuleCategory)
}

func TestParseReview_EmptyTextIsAllZeroValues(t *testing.T) {
	r := ParseReview("")
	assert.Empty(t, r.WhatWorked)
	assert.Empty(t, r.NewRule)
	assert.False(t, r.ShouldRepeat)
	assert.Equal(t, "general", r.RuleCategory)
}
