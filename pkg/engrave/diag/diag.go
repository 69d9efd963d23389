// Package diag accumulates layout diagnostics.
//
// Expected degenerate geometry (empty measures, unmatched spanner markers,
// clamped spreads) never aborts a layout run. Components append diagnostics
// to a List that is returned alongside the plan, and the caller decides
// whether warnings or errors block further processing.
package diag

import "fmt"

// Severity classifies a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic records one resolved degenerate condition.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Measure  int      `json:"measure"` // global measure index, -1 when not measure-scoped
}

// Diagnostic codes emitted by the layout components.
const (
	CodeEmptyMeasure     = "empty_measure"
	CodeZeroDuration     = "zero_duration_event"
	CodeVoiceOverflow    = "voice_overflow"
	CodeUnmatchedSpanner = "unmatched_spanner"
	CodeSpreadClamped    = "spanner_spread_clamped"
	CodeMeasureOverflow  = "measure_exceeds_page"
	CodeSystemOverflow   = "system_exceeds_page"
	CodePageOverflow     = "element_exceeds_page"
	CodeSparseSystem     = "sparse_trailing_system"
)

func (d Diagnostic) String() string {
	if d.Measure >= 0 {
		return fmt.Sprintf("%s [%s] measure %d: %s", d.Severity, d.Code, d.Measure, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Severity, d.Code, d.Message)
}

// List is an ordered diagnostic accumulator.
type List struct {
	items []Diagnostic
}

// Warnf appends a warning-severity diagnostic. Pass measure -1 for
// diagnostics not scoped to a single measure.
func (l *List) Warnf(code string, measure int, format string, args ...any) {
	l.items = append(l.items, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Measure:  measure,
	})
}

// Errorf appends an error-severity diagnostic.
func (l *List) Errorf(code string, measure int, format string, args ...any) {
	l.items = append(l.items, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Measure:  measure,
	})
}

// Items returns the accumulated diagnostics in emission order.
func (l *List) Items() []Diagnostic {
	return l.items
}

// HasErrors reports whether any diagnostic carries error severity.
func (l *List) HasErrors() bool {
	for _, d := range l.items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the diagnostic count.
func (l *List) Len() int { return len(l.items) }
