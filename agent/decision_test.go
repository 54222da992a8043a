package agent

import (
	"reflect"
	"testing"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKind  DecisionKind
		wantName  string
		wantArgs  []string
		wantValue string
	}{
		{
			name:     "function call",
			input:    "FUNCTION_CALL: add|5|3",
			wantKind: FunctionCall,
			wantName: "add",
			wantArgs: []string{"5", "3"},
		},
		{
			name:     "pieces are trimmed",
			input:    "  FUNCTION_CALL:  add | 5 |3  ",
			wantKind: FunctionCall,
			wantName: "add",
			wantArgs: []string{"5", "3"},
		},
		{
			name:     "no arguments",
			input:    "FUNCTION_CALL: open_powerpoint",
			wantKind: FunctionCall,
			wantName: "open_powerpoint",
			wantArgs: []string{},
		},
		{
			name:     "array argument keeps commas",
			input:    "FUNCTION_CALL: int_list_to_exponential_sum|[73,78,68,73,65]",
			wantKind: FunctionCall,
			wantName: "int_list_to_exponential_sum",
			wantArgs: []string{"[73,78,68,73,65]"},
		},
		{
			name:     "only the first colon splits",
			input:    "FUNCTION_CALL: echo|a:b",
			wantKind: FunctionCall,
			wantName: "echo",
			wantArgs: []string{"a:b"},
		},
		{
			name:     "call found after chatter",
			input:    "Let me compute that.\n  FUNCTION_CALL: strings_to_chars_to_int|INDIA\nFINAL_ANSWER: [1]",
			wantKind: FunctionCall,
			wantName: "strings_to_chars_to_int",
			wantArgs: []string{"INDIA"},
		},
		{
			name:      "final answer keeps brackets",
			input:     "FINAL_ANSWER: [42]",
			wantKind:  FinalAnswer,
			wantValue: "[42]",
		},
		{
			name:      "final answer surrounded by whitespace",
			input:     "\n  FINAL_ANSWER:   [7.59982224609308e+33]  \n",
			wantKind:  FinalAnswer,
			wantValue: "[7.59982224609308e+33]",
		},
		{
			name:     "final answer not on first line",
			input:    "Here you go\nFINAL_ANSWER: [42]",
			wantKind: Unparseable,
		},
		{
			name:     "prose",
			input:    "The answer is 42.",
			wantKind: Unparseable,
		},
		{
			name:     "lowercase marker",
			input:    "function_call: add|1|2",
			wantKind: Unparseable,
		},
		{
			name:     "empty",
			input:    "",
			wantKind: Unparseable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecision(tt.input)
			if d.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", d.Kind, tt.wantKind)
			}
			if d.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", d.Name, tt.wantName)
			}
			if tt.wantKind == FunctionCall && !reflect.DeepEqual(d.Args, tt.wantArgs) {
				t.Errorf("Args = %q, want %q", d.Args, tt.wantArgs)
			}
			if d.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", d.Value, tt.wantValue)
			}
		})
	}
}
