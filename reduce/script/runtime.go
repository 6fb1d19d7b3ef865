// Package script hosts the scripted-reducer variant (§4.3.2): each
// configured JS module contributes an apply/undo export pair, invoked once
// per reducer per block the same way a native reducer would be.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
)

// module is one loaded reducer file, identified by its file stem (the
// name used to bind its apply/undo pair into the runtime's global scope,
// so two modules never collide even though each defines its own local
// "apply"/"undo" identifiers).
type module struct {
	stem string
}

// runtime is a single goja VM shared by every configured scripted reducer.
// Reducers run one at a time on the reduce stage's own goroutine, so the
// VM is never touched concurrently and needs no locking.
type runtime struct {
	vm      *goja.Runtime
	modules []module
}

func newRuntime() *runtime {
	return &runtime{vm: goja.New()}
}

// load reads a reducer file and binds its apply/undo exports under
// "{stem}_apply"/"{stem}_undo" in the VM's global scope. The file is
// expected to define local "apply" and "undo" functions, e.g.:
//
//	function apply(record) { return [...]; }
//	function undo(record) { return [...]; }
//
// Wrapping the source in an IIFE keeps those names out of the shared
// global scope so a second module's own apply/undo don't shadow the
// first's.
func (r *runtime) load(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read reducer module %s: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	wrapped := fmt.Sprintf(
		"(function(){\n%s\nglobalThis[%q] = apply;\nglobalThis[%q] = undo;\n})();",
		src, stem+"_apply", stem+"_undo",
	)

	if _, err := r.vm.RunString(wrapped); err != nil {
		return fmt.Errorf("load reducer module %s: %w", path, err)
	}

	r.modules = append(r.modules, module{stem: stem})
	return nil
}

// invoke calls "{stem}_{method}" with recordJSON parsed as its sole
// argument and returns the call's result re-encoded as JSON text. A
// function that returns undefined yields an empty result, signalling "no
// commands" to the caller.
func (r *runtime) invoke(stem, method string, recordJSON []byte) ([]byte, error) {
	name := stem + "_" + method
	fnVal := r.vm.Get(name)
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil, fmt.Errorf("reducer module %q does not export %q", stem, method)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("reducer module %q export %q is not callable", stem, method)
	}

	parse, ok := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("script runtime: JSON.parse unavailable")
	}
	record, err := parse(goja.Undefined(), r.vm.ToValue(string(recordJSON)))
	if err != nil {
		return nil, fmt.Errorf("parse record for %s: %w", name, err)
	}

	result, err := fn(goja.Undefined(), record)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", name, err)
	}
	if goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}

	stringify, ok := goja.AssertFunction(r.vm.Get("JSON").ToObject(r.vm).Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("script runtime: JSON.stringify unavailable")
	}
	encoded, err := stringify(goja.Undefined(), result)
	if err != nil {
		return nil, fmt.Errorf("encode result of %s: %w", name, err)
	}
	return []byte(encoded.String()), nil
}
