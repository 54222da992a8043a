package tools

import (
	"context"
	"fmt"
	"math"
)

// --- Built-in math tools ---

var twoInts = []Param{{Name: "a", Type: ParamInteger}, {Name: "b", Type: ParamInteger}}

func intPair(args Args) (int, int, error) {
	a, err := args.Int("a")
	if err != nil {
		return 0, 0, err
	}
	b, err := args.Int("b")
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

type addTool struct{}

func (t *addTool) Name() string        { return "add" }
func (t *addTool) Description() string { return "Add two numbers" }
func (t *addTool) Params() []Param     { return twoInts }

func (t *addTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	a, b, err := intPair(args)
	if err != nil {
		return nil, err
	}
	return a + b, nil
}

type subtractTool struct{}

func (t *subtractTool) Name() string        { return "subtract" }
func (t *subtractTool) Description() string { return "Subtract two numbers" }
func (t *subtractTool) Params() []Param     { return twoInts }

func (t *subtractTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	a, b, err := intPair(args)
	if err != nil {
		return nil, err
	}
	return a - b, nil
}

type multiplyTool struct{}

func (t *multiplyTool) Name() string        { return "multiply" }
func (t *multiplyTool) Description() string { return "Multiply two numbers" }
func (t *multiplyTool) Params() []Param     { return twoInts }

func (t *multiplyTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	a, b, err := intPair(args)
	if err != nil {
		return nil, err
	}
	return a * b, nil
}

type divideTool struct{}

func (t *divideTool) Name() string        { return "divide" }
func (t *divideTool) Description() string { return "Divide two numbers" }
func (t *divideTool) Params() []Param     { return twoInts }

func (t *divideTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	a, b, err := intPair(args)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return float64(a) / float64(b), nil
}

type powerTool struct{}

func (t *powerTool) Name() string        { return "power" }
func (t *powerTool) Description() string { return "Power of two numbers" }
func (t *powerTool) Params() []Param     { return twoInts }

func (t *powerTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	a, b, err := intPair(args)
	if err != nil {
		return nil, err
	}
	if b < 0 {
		return math.Pow(float64(a), float64(b)), nil
	}
	result := 1
	for i := 0; i < b; i++ {
		result *= a
	}
	return result, nil
}

type sqrtTool struct{}

func (t *sqrtTool) Name() string        { return "sqrt" }
func (t *sqrtTool) Description() string { return "Square root of a number" }
func (t *sqrtTool) Params() []Param     { return []Param{{Name: "a", Type: ParamInteger}} }

func (t *sqrtTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	a, err := args.Int("a")
	if err != nil {
		return nil, err
	}
	if a < 0 {
		return nil, fmt.Errorf("square root of negative number %d", a)
	}
	return math.Sqrt(float64(a)), nil
}

// charCodesTool returns the code point of every character in a word.
type charCodesTool struct{}

func (t *charCodesTool) Name() string { return "strings_to_chars_to_int" }
func (t *charCodesTool) Description() string {
	return "Return the ASCII values of the characters in a word"
}
func (t *charCodesTool) Params() []Param { return []Param{{Name: "string", Type: ParamText}} }

func (t *charCodesTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	s, err := args.String("string")
	if err != nil {
		return nil, err
	}
	codes := make([]int, 0, len(s))
	for _, r := range s {
		codes = append(codes, int(r))
	}
	return codes, nil
}

type expSumTool struct{}

func (t *expSumTool) Name() string { return "int_list_to_exponential_sum" }
func (t *expSumTool) Description() string {
	return "Return sum of exponentials of numbers in a list"
}
func (t *expSumTool) Params() []Param { return []Param{{Name: "int_list", Type: ParamArray}} }

func (t *expSumTool) Execute(ctx context.Context, args Args) (interface{}, error) {
	list, err := args.IntSlice("int_list")
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, n := range list {
		sum += math.Exp(float64(n))
	}
	return sum, nil
}
