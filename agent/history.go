package agent

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/slideagent/tools"
)

// NextQuestion closes every follow-up query.
const NextQuestion = "  What should I do next?"

// IterationRecord is what one round left behind. Immutable once appended.
type IterationRecord struct {
	Index     int // 0-based
	Decision  Decision
	Arguments tools.Arguments
	Result    tools.Result
	Err       error
	Line      string
}

// History accumulates the records of one run.
type History struct {
	records []IterationRecord
}

// SuccessLine renders a dispatched call for the next round's context.
func SuccessLine(index int, name string, args tools.Arguments, result tools.Result) string {
	return fmt.Sprintf("In iteration %d you called %s with %s parameters, and the function returned %s.",
		index+1, name, args.JSON(), result.Render())
}

// ErrorLine renders a failed round.
func ErrorLine(index int, err error) string {
	return fmt.Sprintf("Error in iteration %d: %v", index+1, err)
}

// RecordSuccess appends the line for a completed call.
func (h *History) RecordSuccess(index int, dec Decision, args tools.Arguments, result tools.Result) IterationRecord {
	rec := IterationRecord{
		Index:     index,
		Decision:  dec,
		Arguments: args,
		Result:    result,
		Line:      SuccessLine(index, dec.Name, args, result),
	}
	h.records = append(h.records, rec)
	return rec
}

// RecordError appends the line for a failed round.
func (h *History) RecordError(index int, dec Decision, args tools.Arguments, err error) IterationRecord {
	rec := IterationRecord{
		Index:     index,
		Decision:  dec,
		Arguments: args,
		Err:       err,
		Line:      ErrorLine(index, err),
	}
	h.records = append(h.records, rec)
	return rec
}

// Records returns a copy of the records in order.
func (h *History) Records() []IterationRecord {
	out := make([]IterationRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of records.
func (h *History) Len() int {
	return len(h.records)
}

// Lines returns the rendered lines in order.
func (h *History) Lines() []string {
	lines := make([]string, len(h.records))
	for i, r := range h.records {
		lines[i] = r.Line
	}
	return lines
}

// Context builds the query for the next round: the task alone while the
// history is empty, then the task followed by every line so far.
func (h *History) Context(task string) string {
	if len(h.records) == 0 {
		return task
	}
	return task + "\n\n" + strings.Join(h.Lines(), " ") + NextQuestion
}
