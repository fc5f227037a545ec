// Package script evaluates palette templates written in JavaScript.
//
// A template is a script that assigns a global `palette` object (or ends
// with a palette expression). Templates may read the `params` global,
// which carries caller data such as the text of a greeting card.
package script

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"painter/pkg/view"
)

// ErrNoPalette is returned when a template produces no palette.
var ErrNoPalette = errors.New("script did not define a palette")

// Engine runs templates in a fresh goja runtime.
type Engine struct {
	vm *goja.Runtime
}

// New creates a new JS engine with a fresh goja runtime.
func New() *Engine {
	vm := goja.New()
	e := &Engine{vm: vm}

	c := &consoleAPI{}
	c.register(vm)
	registerUnits(vm)

	return e
}

// Execute runs src with params bound to the `params` global and decodes
// the palette it builds.
func (e *Engine) Execute(src string, params map[string]any) (*view.Palette, error) {
	if params == nil {
		params = map[string]any{}
	}
	if err := e.vm.Set("params", params); err != nil {
		return nil, err
	}
	result, err := e.vm.RunString(src)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	value := e.vm.Get("palette")
	if isEmpty(value) {
		value = result
	}
	if isEmpty(value) {
		return nil, ErrNoPalette
	}

	stringify, ok := goja.AssertFunction(e.vm.Get("JSON").ToObject(e.vm).Get("stringify"))
	if !ok {
		return nil, errors.New("script: JSON.stringify unavailable")
	}
	encoded, err := stringify(goja.Undefined(), value)
	if err != nil {
		return nil, fmt.Errorf("script: encoding palette: %w", err)
	}
	return view.Parse([]byte(encoded.String()))
}

func isEmpty(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// registerUnits installs rpx(n), px(n) and pct(n), which format numbers
// as dimension strings.
func registerUnits(vm *goja.Runtime) {
	for _, unit := range []struct{ name, suffix string }{
		{"rpx", "rpx"},
		{"px", "px"},
		{"pct", "%"},
	} {
		suffix := unit.suffix
		vm.Set(unit.name, func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(call.Argument(0).String() + suffix)
		})
	}
}
