package parsing

import (
	"regexp"
	"strings"
)

// ReviewResult is the structured record recovered from a Phase 5 review response.
type ReviewResult struct {
	WhatWorked   string
	WhatFailed   string
	Lesson       string
	ShouldRepeat bool
	NewRule      string // empty if NONE
	RuleCategory string
	FullReview   string
}

var reviewFieldRe = regexp.MustCompile(`(?im)^(WHAT_WORKED|WHAT_FAILED|LESSON|SHOULD_REPEAT|NEW_RULE|RULE_CATEGORY|FULL_REVIEW):\s*(.*)$`)

// ParseReview recovers a ReviewResult from raw LLM text. Missing fields are left blank
// rather than causing an error, except RuleCategory, which defaults to "general".
func ParseReview(text string) ReviewResult {
	var r ReviewResult

	for _, m := range reviewFieldRe.FindAllStringSubmatch(text, -1) {
		key := strings.ToUpper(m[1])
		value := strings.TrimSpace(m[2])
		switch key {
		case "WHAT_WORKED":
			r.WhatWorked = value
		case "WHAT_FAILED":
			r.WhatFailed = value
		case "LESSON":
			r.Lesson = value
		case "SHOULD_REPEAT":
			r.ShouldRepeat = strings.EqualFold(value, "YES")
		case "NEW_RULE":
			if !strings.EqualFold(value, "NONE") {
				r.NewRule = value
			}
		case "RULE_CATEGORY":
			r.RuleCategory = strings.ToLower(value)
		case "FULL_REVIEW":
			r.FullReview = value
		}
	}

	if r.RuleCategory == "" {
		r.RuleCategory = "general"
	}

	return r
}
