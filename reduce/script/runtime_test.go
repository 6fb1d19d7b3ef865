package script

import (
	"os"
	"path/filepath"
	"testing"
)

func writeModule(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write module: %v", err)
	}
	return path
}

func TestRuntimeInvokeReturnsSingleCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "balances.js", `
function apply(record) {
	return {command: "PNCounter", key: "x", value: record.Txs.length};
}
function undo(record) {
	return {command: "PNCounter", key: "x", value: -record.Txs.length};
}
`)

	rt := newRuntime()
	if err := rt.load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := rt.invoke("balances", "apply", []byte(`{"Txs": [1, 2, 3]}`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if string(out) != `{"command":"PNCounter","key":"x","value":3}` {
		t.Fatalf("unexpected result: %s", out)
	}
}

func TestRuntimeInvokeReturnsArray(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "multi.js", `
function apply(record) {
	return [
		{command: "SetAdd", set: "s", member: "a"},
		{command: "SetAdd", set: "s", member: "b"},
	];
}
function undo(record) { return []; }
`)

	rt := newRuntime()
	if err := rt.load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := rt.invoke("multi", "apply", []byte(`{}`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("expected a non-empty result")
	}
}

func TestRuntimeInvokeUndefinedYieldsNoResult(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "noop.js", `
function apply(record) {}
function undo(record) {}
`)

	rt := newRuntime()
	if err := rt.load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	out, err := rt.invoke("noop", "apply", []byte(`{}`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil result for undefined return, got %s", out)
	}
}

func TestRuntimeLoadKeepsModulesIsolated(t *testing.T) {
	dir := t.TempDir()
	pathA := writeModule(t, dir, "a.js", `
function apply(record) { return {command: "PNCounter", key: "a", value: 1}; }
function undo(record) { return {command: "PNCounter", key: "a", value: -1}; }
`)
	pathB := writeModule(t, dir, "b.js", `
function apply(record) { return {command: "PNCounter", key: "b", value: 2}; }
function undo(record) { return {command: "PNCounter", key: "b", value: -2}; }
`)

	rt := newRuntime()
	if err := rt.load(pathA); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := rt.load(pathB); err != nil {
		t.Fatalf("load b: %v", err)
	}

	outA, err := rt.invoke("a", "apply", []byte(`{}`))
	if err != nil {
		t.Fatalf("invoke a: %v", err)
	}
	outB, err := rt.invoke("b", "apply", []byte(`{}`))
	if err != nil {
		t.Fatalf("invoke b: %v", err)
	}
	if string(outA) == string(outB) {
		t.Fatalf("expected distinct results from isolated modules")
	}
}

func TestRuntimeInvokeMissingExportErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir, "partial.js", `
function apply(record) { return {}; }
var undo;
`)

	rt := newRuntime()
	if err := rt.load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := rt.invoke("partial", "undo", []byte(`{}`)); err == nil {
		t.Fatalf("expected an error invoking an unexported method")
	}
}
