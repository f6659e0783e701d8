package services

import (
	"strings"

	"github.com/debugmentor/debugmentor-backend/internal/types"
)

type TestFixResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Confidence int    `json:"confidence"`
}

// Keyword table: if the error mentions the pattern, a plausible fix tends to
// contain one of the keywords.
var commonFixPatterns = map[string][]string{
	"undefined":            {"let", "const", "var", "=", "declar"},
	"null":                 {"null", "undefined", "check", "if"},
	"cannot read property": {"optional", "?.", "if", "check"},
	"syntax error":         {"syntax", "missing", "bracket", "paren"},
	"typeerror":            {"type", "convert", "parse", "string", "number"},
	"referenceerror":       {"import", "require", "export", "declar"},
}

var goodPracticeKeywords = []string{"try", "catch", "if", "else", "return", "const", "let"}

// TestFix estimates whether a proposed fix plausibly addresses the error.
// Pure pattern matching against the text, never code execution; the verdict
// only annotates the analysis record and is not authoritative.
func TestFix(errorInput, fixCode string) TestFixResult {
	errorLower := strings.ToLower(errorInput)
	fixLower := strings.ToLower(fixCode)

	confidence := 0

	for pattern, keywords := range commonFixPatterns {
		if !strings.Contains(errorLower, pattern) {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(fixLower, kw) {
				confidence += 20
				break
			}
		}
	}

	if len(strings.TrimSpace(fixCode)) > 10 {
		confidence += 30
	}

	for _, practice := range goodPracticeKeywords {
		if strings.Contains(fixLower, practice) {
			confidence += 20
			break
		}
	}

	if len(fixCode) > 50 {
		confidence += 30
	}

	if confidence >= 50 {
		return TestFixResult{
			Status:     types.TestFixLikelyFixed,
			Message:    "The fix appears to address the error. Review the code carefully before deploying.",
			Confidence: confidence,
		}
	}
	return TestFixResult{
		Status:     types.TestFixStillFailing,
		Message:    "The fix may not fully resolve the issue. Please review the error and fix again.",
		Confidence: confidence,
	}
}
