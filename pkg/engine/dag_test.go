package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestResolveOrder_Chain(t *testing.T) {
	edges := map[string][]string{
		"A": {"B"},
		"B": {"C"},
	}

	order, err := ResolveOrder([]string{"A"}, edges)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"C", "B", "A"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
}

func TestResolveOrder_Diamond(t *testing.T) {
	edges := map[string][]string{
		"app":   {"left", "right"},
		"left":  {"base"},
		"right": {"base"},
	}

	order, err := ResolveOrder([]string{"app", "right"}, edges)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"base", "left", "right", "app"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %v, got %v", want, order)
	}
}

func TestResolveOrder_DependenciesPrecedeDependents(t *testing.T) {
	edges := map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d", "e"},
		"f": {"a"},
	}

	order, err := ResolveOrder([]string{"f", "e", "a"}, edges)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	pos := make(map[string]int)
	for i, n := range order {
		if _, dup := pos[n]; dup {
			t.Fatalf("Duplicate %s in %v", n, order)
		}
		pos[n] = i
	}
	for node, deps := range edges {
		for _, dep := range deps {
			if pos[dep] > pos[node] {
				t.Errorf("%s appears after its dependent %s in %v", dep, node, order)
			}
		}
	}
}

func TestResolveOrder_Cycle(t *testing.T) {
	edges := map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	}

	_, err := ResolveOrder([]string{"A"}, edges)
	if err == nil {
		t.Fatal("Expected cycle error")
	}
	if !IsResolution(err) {
		t.Errorf("Expected resolution error, got: %v", err)
	}

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("Expected CycleError in chain, got: %v", err)
	}
	want := []string{"A", "B", "C", "A"}
	if !reflect.DeepEqual(cycle.Path, want) {
		t.Errorf("Expected path %v, got %v", want, cycle.Path)
	}
}

func TestResolveOrder_SelfLoop(t *testing.T) {
	_, err := ResolveOrder([]string{"x"}, map[string][]string{"x": {"x"}})
	if !IsResolution(err) {
		t.Fatalf("Expected resolution error, got: %v", err)
	}
}

func TestDependencyGraph_LevelsAndDOT(t *testing.T) {
	g := NewDependencyGraph()
	g.AddEdge("foo", "bar")
	g.AddEdge("foo", "baz")
	g.AddEdge("bar", "baz")
	g.AddEdge("foo", "bar")
	g.AddNode("solo")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	want := [][]string{{"baz", "solo"}, {"bar"}, {"foo"}}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("Expected levels %v, got %v", want, levels)
	}

	order, err := g.Order(nil)
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}
	if !reflect.DeepEqual(order, []string{"baz", "bar", "foo", "solo"}) {
		t.Errorf("Unexpected order %v", order)
	}

	dot := g.ToDOT()
	for _, want := range []string{"digraph Dependencies", `"foo" -> "bar";`, `"bar" -> "baz";`, "cluster_level_2"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
	if strings.Count(dot, `"foo" -> "bar"`) != 1 {
		t.Errorf("Duplicate edge in DOT output:\n%s", dot)
	}
}

func TestEngineError_Classes(t *testing.T) {
	cause := NewExternalToolError("build script failed", 2, "  boom\n")
	err := NewDependencyError("bar/1.2", cause)

	if !IsDependency(err) {
		t.Errorf("Expected dependency class, got %s", Class(err))
	}

	var inner *EngineError
	if !errors.As(err.Err, &inner) || !IsExternalTool(inner) {
		t.Fatalf("Expected wrapped external tool error")
	}
	if inner.Diagnostic() != "boom" {
		t.Errorf("Expected diagnostic %q, got %q", "boom", inner.Diagnostic())
	}
	if !strings.Contains(err.Error(), "bar/1.2") {
		t.Errorf("Expected resource in message: %s", err.Error())
	}
	if Class(errors.New("plain")) != "internal" {
		t.Errorf("Expected internal class for plain errors")
	}
	if ExitCode(nil) != 0 || ExitCode(err) != 1 {
		t.Errorf("Unexpected exit codes")
	}
	if !errors.Is(NewVersionNotFoundError("x", "9", nil), &EngineError{Class: ErrorClassNotFound, Code: ErrCodeVersionNotFound}) {
		t.Errorf("Expected errors.Is match on class and code")
	}
}
