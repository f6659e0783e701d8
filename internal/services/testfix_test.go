package services

import (
	"testing"

	"github.com/debugmentor/debugmentor-backend/internal/types"
)

func TestTestFixVerdicts(t *testing.T) {
	tests := []struct {
		name       string
		errorInput string
		fixCode    string
		wantStatus string
	}{
		{
			name:       "guarded undefined access",
			errorInput: "TypeError: cannot read property 'name' of undefined",
			fixCode:    "if (user != null) { const name = user.name; return name; }",
			wantStatus: types.TestFixLikelyFixed,
		},
		{
			name:       "substantial fix with error handling",
			errorInput: "ReferenceError: fetchData is not defined",
			fixCode:    "import { fetchData } from './api';\ntry { await fetchData(); } catch (err) { console.error(err); }",
			wantStatus: types.TestFixLikelyFixed,
		},
		{
			name:       "trivial fix",
			errorInput: "SyntaxError: missing ) after argument list",
			fixCode:    "x",
			wantStatus: types.TestFixStillFailing,
		},
		{
			name:       "whitespace only",
			errorInput: "panic: runtime error",
			fixCode:    "    ",
			wantStatus: types.TestFixStillFailing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TestFix(tt.errorInput, tt.fixCode)
			if result.Status != tt.wantStatus {
				t.Errorf("status = %q (confidence %d), want %q", result.Status, result.Confidence, tt.wantStatus)
			}
			if result.Message == "" {
				t.Error("verdict carries no message")
			}
		})
	}
}

func TestTestFixConfidenceGrowsWithSignals(t *testing.T) {
	weak := TestFix("TypeError: cannot read property 'x' of undefined", "x")
	strong := TestFix("TypeError: cannot read property 'x' of undefined",
		"if (obj && typeof obj.x !== 'undefined') { const value = obj.x; return value; }")
	if strong.Confidence <= weak.Confidence {
		t.Errorf("confidence did not grow: weak %d, strong %d", weak.Confidence, strong.Confidence)
	}
}
