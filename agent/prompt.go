package agent

import (
	"fmt"
	"strings"

	"github.com/vinayprograms/slideagent/tools"
)

const systemTemplate = `You are a math agent solving problems in iterations. You have access to various mathematical tools.

Available tools:
%s

You must respond with EXACTLY ONE line in one of these formats (no additional text):
1. For function calls:
   FUNCTION_CALL: function_name|param1|param2|...

2. For final answers:
   FINAL_ANSWER: [number]

Important:
- When a function returns multiple values, you need to process all of them
- Only give FINAL_ANSWER when you have completed all necessary calculations
- Do not repeat function calls with the same parameters

Examples:
- FUNCTION_CALL: add|5|3
- FUNCTION_CALL: strings_to_chars_to_int|INDIA
- FUNCTION_CALL: int_list_to_exponential_sum|[73,78,68,73,65]
- FINAL_ANSWER: [42]

DO NOT include any explanations or additional text.
Your entire response should be a single line starting with either FUNCTION_CALL: or FINAL_ANSWER:`

// RenderCatalog lists the tools one per line, numbered from 1.
func RenderCatalog(catalog []tools.Descriptor) string {
	lines := make([]string, len(catalog))
	for i, d := range catalog {
		lines[i] = fmt.Sprintf("%d. %s - %s", i+1, d.Signature(), d.Description)
	}
	return strings.Join(lines, "\n")
}

// SystemPrompt renders the fixed instructions with the tool catalog.
func SystemPrompt(catalog []tools.Descriptor) string {
	return fmt.Sprintf(systemTemplate, RenderCatalog(catalog))
}

// BuildPrompt joins the system prompt and the current query.
func BuildPrompt(system, query string) string {
	return system + "\n\nQuery: " + query
}
