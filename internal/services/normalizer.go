package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

// The oracle promises JSON but delivers free text. Everything that reaches
// storage or a client goes through here first: either a fully-conforming
// payload comes out, or a typed oracle_malformed_output failure does.
// Nothing partial ever escapes.

const (
	minScoreDelta     = -5
	maxScoreDelta     = 10
	defaultScoreDelta = 5
)

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.ReplaceAll(text, "```json", "")
		text = strings.ReplaceAll(text, "```", "")
	} else if strings.HasPrefix(text, "```") {
		text = strings.ReplaceAll(text, "```", "")
	}
	return strings.TrimSpace(text)
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asStringSlice(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeAnalysis validates and repairs a raw oracle response into the
// strict analysis schema.
func NormalizeAnalysis(raw string) (*types.AnalysisPayload, error) {
	text := stripCodeFences(raw)

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, apierr.OracleMalformed(fmt.Errorf("analysis payload is not valid JSON: %w", err))
	}

	payload := &types.AnalysisPayload{
		ErrorExplanation: asString(doc["error_explanation"]),
		RootCause:        asString(doc["root_cause"]),
		WhyFixWorks:      asString(doc["why_fix_works"]),
		VisualFlow:       asString(doc["visual_flow"]),
		RealWorldExample: asString(doc["real_world_example"]),
		LearningTip:      asString(doc["learning_tip"]),
	}

	if fix, ok := doc["fix"].(map[string]interface{}); ok {
		payload.Fix = types.Fix{
			Code:  asString(fix["code"]),
			Steps: asStringSlice(fix["steps"]),
		}
	}

	if payload.ErrorExplanation == "" {
		return nil, apierr.OracleMalformed(fmt.Errorf("missing required field error_explanation"))
	}
	if payload.RootCause == "" {
		return nil, apierr.OracleMalformed(fmt.Errorf("missing required field root_cause"))
	}
	if payload.Fix.Code == "" {
		return nil, apierr.OracleMalformed(fmt.Errorf("missing required field fix.code"))
	}

	if rawCauses, ok := doc["possible_causes"].([]interface{}); ok {
		causes := make([]types.PossibleCause, 0, len(rawCauses))
		weights := make([]float64, 0, len(rawCauses))
		for _, rc := range rawCauses {
			entry, ok := rc.(map[string]interface{})
			if !ok {
				return nil, apierr.OracleMalformed(fmt.Errorf("possible_causes entry is not an object"))
			}
			prob, ok := asNumber(entry["probability"])
			if !ok {
				return nil, apierr.OracleMalformed(fmt.Errorf("possible_causes probability is not a number"))
			}
			causes = append(causes, types.PossibleCause{Cause: asString(entry["cause"])})
			weights = append(weights, prob)
		}
		for i, p := range renormalizeProbabilities(weights) {
			causes[i].Probability = p
		}
		payload.PossibleCauses = causes
	}

	payload.Difficulty = coerceDifficulty(asString(doc["difficulty"]))

	if delta, ok := asNumber(doc["skill_score_delta"]); ok {
		payload.SkillScoreDelta = clampDelta(int(math.Round(delta)))
	} else {
		payload.SkillScoreDelta = defaultScoreDelta
	}

	return payload, nil
}

func coerceDifficulty(d string) string {
	if types.IsValidDifficulty(d) {
		return d
	}
	return types.DifficultyMedium
}

func clampDelta(d int) int {
	if d < minScoreDelta {
		return minScoreDelta
	}
	if d > maxScoreDelta {
		return maxScoreDelta
	}
	return d
}

// renormalizeProbabilities scales the weights proportionally so they sum to
// exactly 100, using largest-remainder apportionment. A zero or negative
// total falls back to uniform redistribution so the invariant still holds.
func renormalizeProbabilities(weights []float64) []int {
	n := len(weights)
	if n == 0 {
		return nil
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		uniform := make([]float64, n)
		for i := range uniform {
			uniform[i] = 1
		}
		weights = uniform
		total = float64(n)
	}

	out := make([]int, n)
	remainders := make([]struct {
		idx  int
		frac float64
	}, n)
	assigned := 0
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		exact := w * 100 / total
		out[i] = int(exact)
		assigned += out[i]
		remainders[i] = struct {
			idx  int
			frac float64
		}{i, exact - float64(out[i])}
	}

	sort.SliceStable(remainders, func(a, b int) bool {
		return remainders[a].frac > remainders[b].frac
	})
	for i := 0; i < 100-assigned; i++ {
		out[remainders[i%n].idx]++
	}
	return out
}

// NormalizeQuiz validates a raw oracle response into at most numQuestions
// multiple-choice questions.
func NormalizeQuiz(raw string, numQuestions int) ([]types.QuizQuestion, error) {
	text := stripCodeFences(raw)

	var docs []interface{}
	if err := json.Unmarshal([]byte(text), &docs); err != nil {
		return nil, apierr.OracleMalformed(fmt.Errorf("quiz payload is not a valid JSON array: %w", err))
	}
	if len(docs) == 0 {
		return nil, apierr.OracleMalformed(fmt.Errorf("quiz payload contained no questions"))
	}

	if numQuestions > 0 && len(docs) > numQuestions {
		docs = docs[:numQuestions]
	}

	questions := make([]types.QuizQuestion, 0, len(docs))
	for idx, d := range docs {
		entry, ok := d.(map[string]interface{})
		if !ok {
			return nil, apierr.OracleMalformed(fmt.Errorf("quiz question %d is not an object", idx))
		}

		q := types.QuizQuestion{
			Question: asString(entry["question"]),
			Options:  asStringSlice(entry["options"]),
		}
		if q.Question == "" {
			q.Question = fmt.Sprintf("Question %d", idx+1)
		}
		if len(q.Options) == 0 {
			q.Options = []string{"Option A", "Option B", "Option C", "Option D"}
		}
		if ans, ok := asNumber(entry["correctAnswer"]); ok {
			q.CorrectAnswer = int(ans)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			q.CorrectAnswer = 0
		}
		questions = append(questions, q)
	}

	return questions, nil
}
