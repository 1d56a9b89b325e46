package runner

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/diagrun/pkg/dom"
	"github.com/rendis/diagrun/pkg/schema"
)

// elementFilter is a compiled expr predicate evaluated once per candidate
// element.
type elementFilter struct {
	source string
	prg    *vm.Program
}

func compileFilter(expression string) (*elementFilter, error) {
	if expression == "" {
		return nil, nil
	}
	prg, err := expr.Compile(expression,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"compile element filter %q: %s", expression, err.Error()).WithCause(err)
	}
	return &elementFilter{source: expression, prg: prg}, nil
}

func (f *elementFilter) match(el *dom.Element) (bool, error) {
	env := map[string]any{
		"id":    el.ID(),
		"tag":   el.Tag(),
		"attrs": el.Attrs(),
		"text":  el.Text(),
	}
	out, err := vm.Run(f.prg, env)
	if err != nil {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"element filter %q failed: %s", f.source, err.Error()).WithCause(err)
	}
	keep, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"element filter %q did not evaluate to a boolean", f.source)
	}
	return keep, nil
}
