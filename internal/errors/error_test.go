package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestRuleError_Creation(t *testing.T) {
	err := UnknownTemplate("dbt_expectations.expect_colum_to_exist", []string{"dbt_expectations.expect_column_to_exist"})

	if err.Phase != PhaseCatalog {
		t.Errorf("Expected phase %q, got %q", PhaseCatalog, err.Phase)
	}
	if err.Code != ErrUnknownTemplate {
		t.Errorf("Expected code %q, got %q", ErrUnknownTemplate, err.Code)
	}
	if err.Severity != Warning {
		t.Errorf("Expected severity Warning, got %v", err.Severity)
	}
	if len(err.Suggestions) != 1 {
		t.Errorf("Expected 1 suggestion, got %d", len(err.Suggestions))
	}
}

func TestRuleError_ErrorString(t *testing.T) {
	err := DatasetReadFailure("data.csv", io.ErrUnexpectedEOF)
	msg := err.Error()

	if !strings.HasPrefix(msg, ErrDatasetReadFailure+": ") {
		t.Errorf("Error() should start with code, got %q", msg)
	}
	if !strings.Contains(msg, io.ErrUnexpectedEOF.Error()) {
		t.Errorf("Error() should include cause, got %q", msg)
	}
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("load failed: %w", MalformedDocument("bad yaml", nil))

	if !HasCode(wrapped, ErrMalformedDocument) {
		t.Error("HasCode() should see through fmt.Errorf wrapping")
	}
	if HasCode(wrapped, ErrIndexOutOfRange) {
		t.Error("HasCode() matched the wrong code")
	}
	if Code(wrapped) != ErrMalformedDocument {
		t.Errorf("Code() = %q", Code(wrapped))
	}
	if Code(io.EOF) != "" {
		t.Error("Code() of a plain error should be empty")
	}
}

func TestRuleError_Unwrap(t *testing.T) {
	err := EngineFailure("build", io.ErrClosedPipe)
	if err.Unwrap() != io.ErrClosedPipe {
		t.Error("Unwrap() should return the cause")
	}
}

func TestRuleError_JSON(t *testing.T) {
	err := IndexOutOfRange(5, 2)
	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("Marshal() error = %v", jerr)
	}

	var decoded map[string]interface{}
	if jerr := json.Unmarshal(data, &decoded); jerr != nil {
		t.Fatalf("Unmarshal() error = %v", jerr)
	}
	if decoded["code"] != ErrIndexOutOfRange {
		t.Errorf("code = %v", decoded["code"])
	}
	if decoded["severity"] != "error" {
		t.Errorf("severity = %v", decoded["severity"])
	}
	if decoded["subject"] != "5" {
		t.Errorf("subject = %v", decoded["subject"])
	}
}

func TestTitle(t *testing.T) {
	if Title(ErrUnimplementedParameter) != "unimplemented parameter" {
		t.Errorf("Title() = %q", Title(ErrUnimplementedParameter))
	}
	if Title("DQ999") != "error" {
		t.Errorf("Title() of unknown code = %q", Title("DQ999"))
	}
}
