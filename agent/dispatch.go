package agent

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vinayprograms/slideagent/errors"
	"github.com/vinayprograms/slideagent/logging"
	"github.com/vinayprograms/slideagent/tools"
)

// Toolbox is the tool catalog and invocation boundary. Both the MCP client
// and the in-process registry satisfy it.
type Toolbox interface {
	Descriptors(ctx context.Context) ([]tools.Descriptor, error)
	Call(ctx context.Context, name string, args tools.Arguments) (tools.Result, error)
}

// Dispatcher binds FunctionCall decisions to the catalog and invokes them.
type Dispatcher struct {
	toolbox Toolbox
	catalog []tools.Descriptor
	byName  map[string]tools.Descriptor
	timeout time.Duration
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher over a catalog fetched once up front.
// A zero timeout leaves tool calls unbounded.
func NewDispatcher(toolbox Toolbox, catalog []tools.Descriptor, timeout time.Duration, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	byName := make(map[string]tools.Descriptor, len(catalog))
	for _, d := range catalog {
		byName[d.Name] = d
	}
	return &Dispatcher{
		toolbox: toolbox,
		catalog: catalog,
		byName:  byName,
		timeout: timeout,
		logger:  logger,
	}
}

// Catalog returns the descriptors in catalog order.
func (d *Dispatcher) Catalog() []tools.Descriptor {
	return d.catalog
}

// Resolve finds a tool by exact name.
func (d *Dispatcher) Resolve(name string) (tools.Descriptor, error) {
	desc, ok := d.byName[name]
	if !ok {
		return tools.Descriptor{}, errors.UnknownTool(name)
	}
	return desc, nil
}

// Coerce binds raw positional arguments to the declared parameters in order.
// Each parameter consumes one raw argument from the front; running out is an
// error, leftovers are dropped.
func (d *Dispatcher) Coerce(desc tools.Descriptor, raw []string) (tools.Arguments, error) {
	remaining := raw
	args := make(tools.Arguments, 0, len(desc.Params))
	for _, p := range desc.Params {
		if len(remaining) == 0 {
			return nil, errors.InsufficientArgs(desc.Name)
		}
		value := remaining[0]
		remaining = remaining[1:]

		v, err := coerce(p, value)
		if err != nil {
			return nil, err
		}
		args = append(args, tools.Argument{Name: p.Name, Value: v})
	}

	if len(remaining) > 0 {
		d.logger.Debug("surplus arguments dropped", map[string]interface{}{
			"tool":    desc.Name,
			"dropped": len(remaining),
		})
	}
	return args, nil
}

func coerce(p tools.Param, raw string) (interface{}, error) {
	switch p.Type {
	case tools.ParamInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.TypeCoercion(p.Name, string(p.Type), raw, err)
		}
		return n, nil

	case tools.ParamNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.TypeCoercion(p.Name, string(p.Type), raw, err)
		}
		return f, nil

	case tools.ParamArray:
		ints, err := ParseIntList(raw)
		if err != nil {
			return nil, errors.TypeCoercion(p.Name, string(p.Type), raw, err)
		}
		return ints, nil

	default:
		return raw, nil
	}
}

// ParseIntList parses an array literal such as "[73,78,68]". One leading '['
// and one trailing ']' are stripped, empty elements are skipped.
func ParseIntList(raw string) ([]int, error) {
	s := strings.TrimPrefix(raw, "[")
	s = strings.TrimSuffix(s, "]")
	out := []int{}
	for _, piece := range strings.Split(s, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		n, err := strconv.Atoi(piece)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Invoke calls the tool, bounded by the dispatcher timeout when one is set.
// Transport failures come back as TOOL_CALL errors.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args tools.Arguments) (tools.Result, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	result, err := d.toolbox.Call(ctx, name, args)
	if err != nil {
		if errors.As(err) != nil && !errors.Is(err, errors.ErrCodeInternal) {
			return tools.Result{}, err
		}
		return tools.Result{}, errors.WrapWithCode(err, errors.ErrCodeToolCall, "call "+name)
	}
	return result, nil
}

// Dispatch runs resolve, coerce and invoke for one FunctionCall.
func (d *Dispatcher) Dispatch(ctx context.Context, dec Decision) (tools.Arguments, tools.Result, error) {
	desc, err := d.Resolve(dec.Name)
	if err != nil {
		return nil, tools.Result{}, err
	}
	args, err := d.Coerce(desc, dec.Args)
	if err != nil {
		return nil, tools.Result{}, err
	}
	result, err := d.Invoke(ctx, desc.Name, args)
	return args, result, err
}
