package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// ResultKind tags a Result.
type ResultKind int

const (
	ResultText ResultKind = iota
	ResultTextList
	ResultError
)

// String returns the kind name.
func (k ResultKind) String() string {
	switch k {
	case ResultTextList:
		return "text_list"
	case ResultError:
		return "error"
	default:
		return "text"
	}
}

// Result is the normalized outcome of a tool call. Whatever the tool or the
// transport returned, callers only ever see one of three shapes.
type Result struct {
	Kind  ResultKind
	Text  string   // ResultText and ResultError
	Items []string // ResultTextList
}

// TextResult wraps a single text value.
func TextResult(s string) Result {
	return Result{Kind: ResultText, Text: s}
}

// ListResult wraps an ordered list of text items.
func ListResult(items []string) Result {
	return Result{Kind: ResultTextList, Items: items}
}

// ErrorResult wraps a tool-side error message.
func ErrorResult(s string) Result {
	return Result{Kind: ResultError, Text: s}
}

// IsError reports whether the tool flagged an error.
func (r Result) IsError() bool {
	return r.Kind == ResultError
}

// Render formats the result for history lines:
// lists as "[a, b, c]", errors as "error: <text>", text unchanged.
func (r Result) Render() string {
	switch r.Kind {
	case ResultTextList:
		return "[" + strings.Join(r.Items, ", ") + "]"
	case ResultError:
		return "error: " + r.Text
	default:
		return r.Text
	}
}

// String implements fmt.Stringer.
func (r Result) String() string {
	return r.Render()
}

// FromValue normalizes a Go value returned by an in-process tool.
// Slices become list results, everything else is printed as text.
func FromValue(v interface{}) Result {
	switch val := v.(type) {
	case nil:
		return TextResult("")
	case string:
		return TextResult(val)
	case []string:
		return ListResult(val)
	case []int:
		items := make([]string, len(val))
		for i, n := range val {
			items[i] = fmt.Sprintf("%d", n)
		}
		return ListResult(items)
	case []float64:
		items := make([]string, len(val))
		for i, f := range val {
			items[i] = formatFloat(f)
		}
		return ListResult(items)
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = fmt.Sprint(item)
		}
		return ListResult(items)
	case float64:
		return TextResult(formatFloat(val))
	default:
		return TextResult(fmt.Sprint(val))
	}
}

// formatFloat prints the shortest representation, keeping a ".0" suffix on
// integral values so 3.0 does not read as an integer.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}
