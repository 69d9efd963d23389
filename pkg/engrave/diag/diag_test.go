package diag

import (
	"strings"
	"testing"
)

func TestListAccumulates(t *testing.T) {
	var l List

	l.Warnf(CodeEmptyMeasure, 3, "measure %d has no staves", 3)
	l.Errorf(CodeMeasureOverflow, 7, "measure wider than page")

	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	items := l.Items()
	if items[0].Severity != SeverityWarning || items[0].Code != CodeEmptyMeasure {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].Severity != SeverityError || items[1].Measure != 7 {
		t.Errorf("second item = %+v", items[1])
	}
	if !l.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
}

func TestListNoErrors(t *testing.T) {
	var l List
	l.Warnf(CodeSparseSystem, -1, "trailing system is sparse")
	if l.HasErrors() {
		t.Error("warnings alone should not report errors")
	}
}

func TestDiagnosticString(t *testing.T) {
	scoped := Diagnostic{Severity: SeverityWarning, Code: CodeZeroDuration, Message: "event lasts 0 ticks", Measure: 4}
	if got := scoped.String(); !strings.Contains(got, "measure 4") {
		t.Errorf("String() = %q, want measure reference", got)
	}

	unscoped := Diagnostic{Severity: SeverityError, Code: CodeSystemOverflow, Message: "too tall", Measure: -1}
	if got := unscoped.String(); strings.Contains(got, "measure") {
		t.Errorf("String() = %q, should omit measure", got)
	}
}
