// Package classifier auto-detects a memory's category from its content
// when the caller omits one, per spec.md §4.3. Grounded on
// original_source/src/agent_memory/utils.py:detect_category.
package classifier

import (
	"strings"

	"github.com/chirino/agent-memory/internal/model"
)

// decisionKeywords, taskHistoryKeywords, and sessionSummaryKeywords are
// checked in that order; the first list with a hit wins. Default is
// CategoryFactual.
var (
	decisionKeywords = []string{
		"prefer", "chose", "decided", "rejected", "instead of",
		"rather than", "don't use", "always use", "never use",
		"should use", "shouldn't",
	}
	taskHistoryKeywords = []string{
		"completed", "implemented", "fixed", "added", "removed",
		"refactored", "updated", "created", "deployed", "migrated",
	}
	sessionSummaryKeywords = []string{
		"session", "summary", "discussed", "covered", "worked on",
		"today we", "in this session",
	}
)

// Detect returns the auto-detected category for content.
func Detect(content string) model.Category {
	lower := strings.ToLower(content)
	if containsAny(lower, decisionKeywords) {
		return model.CategoryDecision
	}
	if containsAny(lower, taskHistoryKeywords) {
		return model.CategoryTaskHistory
	}
	if containsAny(lower, sessionSummaryKeywords) {
		return model.CategorySessionSummary
	}
	return model.CategoryFactual
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Normalize validates category and falls back to Detect(content) when it
// is empty or not one of the four fixed categories.
func Normalize(category model.Category, content string) model.Category {
	if category == "" || !category.Valid() {
		return Detect(content)
	}
	return category
}
