package agent

import (
	"strings"
	"testing"

	"github.com/vinayprograms/slideagent/tools"
)

func TestRenderCatalog(t *testing.T) {
	catalog := []tools.Descriptor{
		{Name: "add", Description: "Add two numbers", Params: []tools.Param{{Name: "a", Type: tools.ParamInteger}, {Name: "b", Type: tools.ParamInteger}}},
		{Name: "ping", Description: "Ping"},
	}
	want := "1. add(a: integer, b: integer) - Add two numbers\n2. ping(no parameters) - Ping"
	if got := RenderCatalog(catalog); got != want {
		t.Errorf("RenderCatalog() =\n%s\nwant\n%s", got, want)
	}
	if got := RenderCatalog(nil); got != "" {
		t.Errorf("empty catalog rendered %q", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	system := SystemPrompt([]tools.Descriptor{{Name: "ping", Description: "Ping"}})
	if !strings.Contains(system, "Available tools:\n1. ping(no parameters) - Ping\n") {
		t.Errorf("system prompt missing catalog:\n%s", system)
	}
	if !strings.Contains(system, "FUNCTION_CALL: function_name|param1|param2|...") {
		t.Error("system prompt missing the response grammar")
	}

	got := BuildPrompt("SYS", "task")
	if got != "SYS\n\nQuery: task" {
		t.Errorf("BuildPrompt() = %q", got)
	}
}
