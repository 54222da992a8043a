package automation

import (
	"time"
)

// Step is one state of the sequence.
type Step int

const (
	OpenApp Step = iota
	SelectShapeTool
	DrawShape
	SelectTextTool
	ClickTarget
	InsertText
)

// Steps lists the states in execution order.
var Steps = []Step{OpenApp, SelectShapeTool, DrawShape, SelectTextTool, ClickTarget, InsertText}

var stepNames = map[Step]string{
	OpenApp:         "OpenApp",
	SelectShapeTool: "SelectShapeTool",
	DrawShape:       "DrawShape",
	SelectTextTool:  "SelectTextTool",
	ClickTarget:     "ClickTarget",
	InsertText:      "InsertText",
}

var stepTitles = map[Step]string{
	OpenApp:         "Opening PowerPoint and Creating New Presentation",
	SelectShapeTool: "Selecting Rectangle Shape (Insert -> Shapes -> Rectangle)",
	DrawShape:       "Drawing Rectangle Centered on Slide",
	SelectTextTool:  "Selecting Text Box (Insert -> Text Box)",
	ClickTarget:     "Clicking Inside Rectangle Area to Place Text Box",
	InsertText:      "Pasting Generated Number Inside Rectangle",
}

// String returns the step name.
func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "Unknown"
}

// Title returns the banner logged when the step starts.
func (s Step) Title() string {
	return stepTitles[s]
}

// Status is how a step resolved.
type Status int

const (
	Success Status = iota
	DegradedSuccess
	Failed
	Skipped
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case DegradedSuccess:
		return "degraded"
	case Failed:
		return "failed"
	default:
		return "skipped"
	}
}

// Attempt records one strategy try.
type Attempt struct {
	Strategy string
	Err      error
	Duration time.Duration
}

// StepResult is the record of one executed (or skipped) step.
type StepResult struct {
	Step     Step
	Status   Status
	Strategy string // Winning strategy, empty unless the step succeeded
	Attempts []Attempt
	Duration time.Duration
	Err      error // Last failure, also set when a success was degraded
}

// Report collects the step results of one sequence.
type Report struct {
	Steps   []StepResult
	Aborted bool
	Err     error
}

// Result returns the record for a step.
func (r *Report) Result(step Step) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == step {
			return s, true
		}
	}
	return StepResult{}, false
}

// Counts tallies the steps by status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, s := range r.Steps {
		counts[s.Status]++
	}
	return counts
}
