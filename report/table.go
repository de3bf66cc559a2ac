// Package report renders a run's export stream and assertion diagnostics
// for terminal display. Adapted from the teacher's
// datalog/executor/table_formatter.go, which builds a markdown relation
// table from a query result; here the rows are export records and
// assertion outcomes instead of query tuples.
package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/patchsim/engine/value"
)

// ExportRecord is one (patch_coord, timestep, attribute, value) emission
// from the export pass (spec §4.6).
type ExportRecord struct {
	PatchCoord string
	Timestep   int
	Attribute  string
	Value      value.Value
}

// AssertionFailure is one failed assert.* group outcome, carrying the
// location triple spec §7 requires for diagnostics.
type AssertionFailure struct {
	EntityID  int64
	Attribute string
	Timestep  int
	Message   string
}

// Recorder implements external.ExportSink and external.AssertionSink,
// buffering records in emission order for later rendering. A model run
// has exactly one Recorder; it is not safe for concurrent Emit calls from
// multiple goroutines without external synchronization (the stepper's
// export pass runs single-threaded, after the patch-parallel barrier).
type Recorder struct {
	exports   []ExportRecord
	failures  []AssertionFailure
}

// NewRecorder builds an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements external.ExportSink.
func (r *Recorder) Emit(patchCoord string, timestep int, attribute string, v value.Value) {
	r.exports = append(r.exports, ExportRecord{PatchCoord: patchCoord, Timestep: timestep, Attribute: attribute, Value: v})
}

// AssertionResult implements external.AssertionSink.
func (r *Recorder) AssertionResult(entityID int64, attribute string, timestep int, ok bool, message string) {
	if ok {
		return
	}
	r.failures = append(r.failures, AssertionFailure{EntityID: entityID, Attribute: attribute, Timestep: timestep, Message: message})
}

// Exports returns every export record seen so far, in emission order.
func (r *Recorder) Exports() []ExportRecord { return r.exports }

// Failures returns every failed assertion outcome seen so far.
func (r *Recorder) Failures() []AssertionFailure { return r.failures }

// TableFormatter renders Recorder contents as terminal-friendly tables.
type TableFormatter struct {
	// UseColor enables ANSI coloring of assertion diagnostics.
	UseColor bool
}

// NewTableFormatter builds a formatter with color enabled.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{UseColor: true}
}

// FormatExports renders records as a markdown table, mirroring the
// teacher's FormatRelation/formatTable shape.
func (tf *TableFormatter) FormatExports(records []ExportRecord) string {
	if len(records) == 0 {
		return "_No export records_"
	}

	headers := []string{"patch", "timestep", "attribute", "value"}
	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	sb := &strings.Builder{}
	table := tablewriter.NewTable(sb,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)

	for _, rec := range records {
		table.Append([]string{
			rec.PatchCoord,
			fmt.Sprintf("%d", rec.Timestep),
			rec.Attribute,
			rec.Value.String(),
		})
	}
	table.Render()
	sb.WriteString(fmt.Sprintf("\n_%d rows_\n", len(records)))
	return sb.String()
}

// FormatFailures renders assertion failures, one line each, colorized red
// when UseColor is set.
func (tf *TableFormatter) FormatFailures(failures []AssertionFailure) string {
	if len(failures) == 0 {
		return "_No assertion failures_"
	}
	sb := &strings.Builder{}
	for _, f := range failures {
		line := fmt.Sprintf("[timestep %d] entity %d: %s failed — %s", f.Timestep, f.EntityID, f.Attribute, f.Message)
		if tf.UseColor {
			line = color.RedString(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
