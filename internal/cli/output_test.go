package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestOutput(jsonMode bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var w, errW bytes.Buffer
	return &Output{jsonMode: jsonMode, w: &w, errW: &errW}, &w, &errW
}

func TestOutput_DetailsSkipsEmptyValues(t *testing.T) {
	out, w, _ := newTestOutput(false)

	out.Details([][2]string{
		{"ID", "f1"},
		{"Error", ""},
		{"Status", "completed"},
	}, nil)

	got := w.String()
	if !strings.Contains(got, "ID:") || !strings.Contains(got, "f1") {
		t.Errorf("Details output missing ID row: %q", got)
	}
	if !strings.Contains(got, "Status:") {
		t.Errorf("Details output missing Status row: %q", got)
	}
	if strings.Contains(got, "Error:") {
		t.Errorf("Details printed row with empty value: %q", got)
	}
}

func TestOutput_DetailsJSONMode(t *testing.T) {
	out, w, _ := newTestOutput(true)

	data := map[string]string{"id": "f1", "status": "completed"}
	out.Details([][2]string{{"ID", "f1"}}, data)

	var decoded map[string]string
	if err := json.Unmarshal(w.Bytes(), &decoded); err != nil {
		t.Fatalf("Details in JSON mode produced invalid JSON: %v", err)
	}
	if decoded["status"] != "completed" {
		t.Errorf("decoded[status] = %q, want %q", decoded["status"], "completed")
	}
	if strings.Contains(w.String(), "ID:") {
		t.Errorf("JSON mode leaked key-value rows: %q", w.String())
	}
}

func TestOutput_TableHasSeparator(t *testing.T) {
	out, w, _ := newTestOutput(false)

	out.Table([]string{"ID", "NAME"}, [][]string{{"f1", "momentum"}})

	lines := strings.Split(strings.TrimSpace(w.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Table printed %d lines, want 3: %q", len(lines), w.String())
	}
	if !strings.Contains(lines[1], "--") {
		t.Errorf("second line is not a separator: %q", lines[1])
	}
	if !strings.Contains(lines[2], "momentum") {
		t.Errorf("data row missing: %q", lines[2])
	}
}

func TestOutput_MessagesGoToStderr(t *testing.T) {
	out, w, errW := newTestOutput(false)

	out.Success("Flow created: f1")
	out.Error("boom")

	if w.Len() != 0 {
		t.Errorf("messages leaked to stdout: %q", w.String())
	}
	if !strings.Contains(errW.String(), "Flow created: f1") {
		t.Errorf("Success message missing from stderr: %q", errW.String())
	}
	if !strings.Contains(errW.String(), "Error: boom") {
		t.Errorf("Error message missing from stderr: %q", errW.String())
	}
}
