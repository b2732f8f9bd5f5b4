package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPipelineError_ErrorIncludesCodeAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewTrackingCreateError(7, "Anna Nowak", cause)

	msg := err.Error()
	if !strings.HasPrefix(msg, "[TRACKING_CREATE_FAILED]") {
		t.Errorf("Error() = %q, want code prefix", msg)
	}
	if !strings.Contains(msg, "Anna Nowak") || !strings.HasSuffix(msg, ": boom") {
		t.Errorf("Error() = %q", msg)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestPipelineError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("sheet failed: %w", NewEmptyInputError("Czerwiec 2024"))

	if !errors.Is(wrapped, &PipelineError{Code: ErrCodeEmptyInput}) {
		t.Error("expected match on EMPTY_INPUT")
	}
	if errors.Is(wrapped, &PipelineError{Code: ErrCodeDateParse}) {
		t.Error("should not match a different code")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Error("should not match an unrelated sentinel")
	}
}

func TestPipelineError_As(t *testing.T) {
	var err error = NewTypeConversionError("Lipiec 2024", 4, "abc")

	var pe *PipelineError
	if !errors.As(err, &pe) {
		t.Fatal("errors.As should extract *PipelineError")
	}
	if pe.Sheet != "Lipiec 2024" || pe.Row != 4 {
		t.Errorf("Sheet=%q Row=%d", pe.Sheet, pe.Row)
	}
}

func TestPipelineError_WithSheet(t *testing.T) {
	orig := NewDateParseError(3, 12, "31.02.2024", errors.New("day out of range"))
	got := orig.WithSheet("Luty 2024")

	if got.Sheet != "Luty 2024" {
		t.Errorf("Sheet = %q", got.Sheet)
	}
	if !strings.Contains(got.Message, "Luty 2024") {
		t.Errorf("Message = %q, want sheet name", got.Message)
	}
	if orig.Sheet != "" {
		t.Error("WithSheet should not mutate the receiver")
	}
	if got.EmployeeID != 12 || got.Row != 3 {
		t.Errorf("EmployeeID=%d Row=%d", got.EmployeeID, got.Row)
	}
}

func TestConstructors_SetCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		code string
	}{
		{"空シート", NewEmptyInputError("s"), ErrCodeEmptyInput},
		{"型変換", NewTypeConversionError("s", 1, "x"), ErrCodeTypeConversion},
		{"日付", NewDateParseError(1, 1, "x", nil), ErrCodeDateParse},
		{"対象なし", NewNoActionableRecordsError("s"), ErrCodeNoActionableRecords},
		{"追跡作成", NewTrackingCreateError(1, "n", nil), ErrCodeTrackingCreateFailed},
		{"本人確認", NewVerificationMismatchError(1, 1, "a", "b"), ErrCodeVerificationMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}
