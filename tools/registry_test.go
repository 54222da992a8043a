package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/vinayprograms/slideagent/errors"
)

func TestRegistry_BuiltinTools(t *testing.T) {
	reg := NewRegistry()

	expected := []string{
		"add", "subtract", "multiply", "divide", "power", "sqrt",
		"strings_to_chars_to_int", "int_list_to_exponential_sum",
	}
	defs, err := reg.Descriptors(context.Background())
	if err != nil {
		t.Fatalf("Descriptors() error = %v", err)
	}
	if len(defs) != len(expected) {
		t.Fatalf("expected %d tools, got %d", len(expected), len(defs))
	}
	for i, name := range expected {
		if defs[i].Name != name {
			t.Errorf("defs[%d] = %q, want %q (registration order)", i, defs[i].Name, name)
		}
		if defs[i].Description == "" {
			t.Errorf("%s should have a description", name)
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()
	if reg.Get("add") == nil {
		t.Fatal("expected to find add")
	}
	if reg.Get("nonexistent") != nil {
		t.Error("expected nil for nonexistent tool")
	}
	var nilReg *Registry
	if nilReg.Has("add") {
		t.Error("nil registry has no tools")
	}
}

func TestRegistry_Call(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args Arguments
		want string
	}{
		{"add", "add", Arguments{{"a", 5}, {"b", 3}}, "8"},
		{"subtract", "subtract", Arguments{{"a", 5}, {"b", 3}}, "2"},
		{"multiply", "multiply", Arguments{{"a", 4}, {"b", 3}}, "12"},
		{"divide", "divide", Arguments{{"a", 6}, {"b", 3}}, "2.0"},
		{"power", "power", Arguments{{"a", 2}, {"b", 10}}, "1024"},
		{"sqrt", "sqrt", Arguments{{"a", 16}}, "4.0"},
		{"char codes", "strings_to_chars_to_int", Arguments{{"string", "INDIA"}}, "[73, 78, 68, 73, 65]"},
		{"exp sum", "int_list_to_exponential_sum", Arguments{{"int_list", []int{0, 0}}}, "2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := reg.Call(ctx, tt.tool, tt.args)
			if err != nil {
				t.Fatalf("Call() error = %v", err)
			}
			if res.IsError() {
				t.Fatalf("unexpected error result: %s", res.Render())
			}
			if got := res.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry_CallUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Call(context.Background(), "foo", nil)
	if !errors.Is(err, errors.ErrCodeUnknownTool) {
		t.Fatalf("expected UNKNOWN_TOOL, got %v", err)
	}
	if err.Error() != "Unknown tool: foo" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRegistry_ToolSideErrors(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	res, err := reg.Call(ctx, "divide", Arguments{{"a", 1}, {"b", 0}})
	if err != nil {
		t.Fatalf("tool failures are results, got error %v", err)
	}
	if !res.IsError() || !strings.Contains(res.Render(), "division by zero") {
		t.Errorf("unexpected result: %s", res.Render())
	}

	res, err = reg.Call(ctx, "add", Arguments{{"a", "five"}, {"b", 3}})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !res.IsError() || !strings.HasPrefix(res.Render(), "error: invalid arguments") {
		t.Errorf("schema violation should be an error result, got %s", res.Render())
	}
}

func TestRegistry_CallJSON(t *testing.T) {
	reg := NewRegistry()
	res, err := reg.CallJSON(context.Background(), "int_list_to_exponential_sum",
		json.RawMessage(`{"int_list":[1,2]}`))
	if err != nil {
		t.Fatalf("CallJSON() error = %v", err)
	}
	if res.IsError() {
		t.Fatalf("unexpected error result: %s", res.Render())
	}
	if !strings.HasPrefix(res.Text, "10.1") {
		t.Errorf("e^1+e^2 = %s", res.Text)
	}

	res, err = reg.CallJSON(context.Background(), "add", nil)
	if err != nil {
		t.Fatalf("CallJSON() error = %v", err)
	}
	if !res.IsError() {
		t.Error("missing required arguments should fail validation")
	}
}

func TestDescriptor_Signature(t *testing.T) {
	d := Descriptor{Name: "add", Params: []Param{{"a", ParamInteger}, {"b", ParamInteger}}}
	if got := d.Signature(); got != "add(a: integer, b: integer)" {
		t.Errorf("Signature() = %q", got)
	}
	d = Descriptor{Name: "word", Params: []Param{{"s", ParamText}}}
	if got := d.Signature(); got != "word(s: string)" {
		t.Errorf("Signature() = %q", got)
	}
	d = Descriptor{Name: "open"}
	if got := d.Signature(); got != "open(no parameters)" {
		t.Errorf("Signature() = %q", got)
	}
}

func TestDescriptor_SchemaKeepsOrder(t *testing.T) {
	d := Descriptor{Name: "t", Params: []Param{
		{"zeta", ParamInteger},
		{"alpha", ParamArray},
		{"mid", ParamText},
	}}
	raw, err := d.Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	s := string(raw)
	zi, ai, mi := strings.Index(s, `"zeta"`), strings.Index(s, `"alpha"`), strings.Index(s, `"mid"`)
	if !(zi < ai && ai < mi) {
		t.Errorf("properties out of order: %s", s)
	}
	if !strings.Contains(s, `"items":{"type":"integer"}`) {
		t.Errorf("array param should declare integer items: %s", s)
	}
	if !strings.Contains(s, `"required":["zeta","alpha","mid"]`) {
		t.Errorf("required list missing: %s", s)
	}
}

func TestParseParamType(t *testing.T) {
	tests := map[string]ParamType{
		"integer": ParamInteger,
		"number":  ParamNumber,
		"array":   ParamArray,
		"string":  ParamText,
		"boolean": ParamText,
		"":        ParamText,
	}
	for in, want := range tests {
		if got := ParseParamType(in); got != want {
			t.Errorf("ParseParamType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestArguments_JSON(t *testing.T) {
	args := Arguments{{"b", 3}, {"a", 5}, {"list", []int{1, 2}}, {"s", "hi"}}
	want := `{"b":3,"a":5,"list":[1,2],"s":"hi"}`
	if got := args.JSON(); got != want {
		t.Errorf("JSON() = %s, want %s", got, want)
	}
	if got := (Arguments{}).JSON(); got != "{}" {
		t.Errorf("empty JSON() = %s", got)
	}
	if v, ok := args.Get("a"); !ok || v != 5 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
}

func TestResult_Render(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{TextResult("42"), "42"},
		{ListResult([]string{"a", "b", "c"}), "[a, b, c]"},
		{ListResult(nil), "[]"},
		{ErrorResult("boom"), "error: boom"},
	}
	for _, tt := range tests {
		if got := tt.res.Render(); got != tt.want {
			t.Errorf("Render() = %q, want %q", got, tt.want)
		}
	}
}

func TestFromValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{8, "8"},
		{2.5, "2.5"},
		{3.0, "3.0"},
		{7.59982224609308e+33, "7.59982224609308e+33"},
		{[]int{1, 2}, "[1, 2]"},
		{[]interface{}{"x", 1}, "[x, 1]"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FromValue(tt.in).Render(); got != tt.want {
			t.Errorf("FromValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
