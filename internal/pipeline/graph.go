// Package pipeline runs a static directed graph of stages over a shared
// state value.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// NodeFunc is one stage. It mutates the shared state in place.
type NodeFunc[S any] func(ctx context.Context, state S) error

// Selector picks the next node after a branching node.
type Selector[S any] func(state S) string

// Graph is a mutable graph definition. Call Compile before running it.
type Graph[S any] struct {
	nodes    map[string]NodeFunc[S]
	order    []string
	edges    map[string]string
	branches map[string]branch[S]
	entry    string
	exit     string
	errs     []error
}

type branch[S any] struct {
	selector Selector[S]
	targets  []string
}

// New returns an empty graph.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:    make(map[string]NodeFunc[S]),
		edges:    make(map[string]string),
		branches: make(map[string]branch[S]),
	}
}

// AddNode registers a stage under name.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	if _, dup := g.nodes[name]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q added twice", name))
		return g
	}
	if fn == nil {
		g.errs = append(g.errs, fmt.Errorf("node %q has no function", name))
		return g
	}
	g.nodes[name] = fn
	g.order = append(g.order, name)
	return g
}

// AddEdge adds an unconditional transition.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing transition", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddBranch adds a conditional fan-out. selector must return one of targets.
func (g *Graph[S]) AddBranch(from string, selector Selector[S], targets ...string) *Graph[S] {
	if g.hasOutgoing(from) {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an outgoing transition", from))
		return g
	}
	if selector == nil || len(targets) == 0 {
		g.errs = append(g.errs, fmt.Errorf("branch from %q needs a selector and targets", from))
		return g
	}
	g.branches[from] = branch[S]{selector: selector, targets: slices.Clone(targets)}
	return g
}

// SetEntry sets the first node.
func (g *Graph[S]) SetEntry(name string) *Graph[S] {
	g.entry = name
	return g
}

// SetExit sets the terminal node.
func (g *Graph[S]) SetExit(name string) *Graph[S] {
	g.exit = name
	return g
}

func (g *Graph[S]) hasOutgoing(name string) bool {
	_, e := g.edges[name]
	_, b := g.branches[name]
	return e || b
}

func (g *Graph[S]) successors(name string) []string {
	if to, ok := g.edges[name]; ok {
		return []string{to}
	}
	if b, ok := g.branches[name]; ok {
		return b.targets
	}
	return nil
}

// Compile validates the graph and freezes it.
func (g *Graph[S]) Compile() (*Compiled[S], error) {
	errs := slices.Clone(g.errs)

	if g.entry == "" {
		errs = append(errs, errors.New("entry node not set"))
	} else if _, ok := g.nodes[g.entry]; !ok {
		errs = append(errs, fmt.Errorf("entry node %q not defined", g.entry))
	}
	if g.exit == "" {
		errs = append(errs, errors.New("exit node not set"))
	} else if _, ok := g.nodes[g.exit]; !ok {
		errs = append(errs, fmt.Errorf("exit node %q not defined", g.exit))
	} else if g.hasOutgoing(g.exit) {
		errs = append(errs, fmt.Errorf("exit node %q has an outgoing transition", g.exit))
	}

	for _, from := range sortedKeys(g.edges, g.branches) {
		if _, ok := g.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("transition from undefined node %q", from))
		}
		for _, to := range g.successors(from) {
			if _, ok := g.nodes[to]; !ok {
				errs = append(errs, fmt.Errorf("transition %q -> %q targets undefined node", from, to))
			}
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("compile graph: %w", errors.Join(errs...))
	}

	if cycle := g.findCycle(); cycle != "" {
		return nil, fmt.Errorf("compile graph: cycle through %q", cycle)
	}

	reachable := g.reach(g.entry)
	for _, name := range g.order {
		if !reachable[name] {
			errs = append(errs, fmt.Errorf("node %q unreachable from entry", name))
			continue
		}
		if name != g.exit && !g.reach(name)[g.exit] {
			errs = append(errs, fmt.Errorf("exit unreachable from node %q", name))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("compile graph: %w", errors.Join(errs...))
	}

	c := &Compiled[S]{
		nodes:    make(map[string]NodeFunc[S], len(g.nodes)),
		edges:    make(map[string]string, len(g.edges)),
		branches: make(map[string]branch[S], len(g.branches)),
		entry:    g.entry,
		exit:     g.exit,
	}
	for k, v := range g.nodes {
		c.nodes[k] = v
	}
	for k, v := range g.edges {
		c.edges[k] = v
	}
	for k, v := range g.branches {
		c.branches[k] = v
	}
	return c, nil
}

func (g *Graph[S]) reach(from string) map[string]bool {
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.successors(n) {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return seen
}

// findCycle returns a node on a cycle, or "".
func (g *Graph[S]) findCycle() string {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))
	var visit func(string) string
	visit = func(n string) string {
		color[n] = grey
		for _, next := range g.successors(n) {
			switch color[next] {
			case grey:
				return next
			case white:
				if c := visit(next); c != "" {
					return c
				}
			}
		}
		color[n] = black
		return ""
	}
	for _, n := range g.order {
		if color[n] == white {
			if c := visit(n); c != "" {
				return c
			}
		}
	}
	return ""
}

func sortedKeys[S any](edges map[string]string, branches map[string]branch[S]) []string {
	keys := make([]string, 0, len(edges)+len(branches))
	for k := range edges {
		keys = append(keys, k)
	}
	for k := range branches {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Compiled is a validated, immutable graph. It is safe to Run concurrently
// with independent states.
type Compiled[S any] struct {
	nodes    map[string]NodeFunc[S]
	edges    map[string]string
	branches map[string]branch[S]
	entry    string
	exit     string
}

// StepError wraps a failure of a single node.
type StepError struct {
	Node string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("stage %s: %v", e.Node, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Trace lists the nodes visited by one run, in order.
type Trace []string

// Run executes the graph from entry to exit. It stops at the first node
// error and returns the trace of the nodes that ran, including the failing
// one.
func (c *Compiled[S]) Run(ctx context.Context, state S) (Trace, error) {
	var trace Trace
	visited := make(map[string]bool, len(c.nodes))

	for name := c.entry; ; {
		if err := ctx.Err(); err != nil {
			return trace, err
		}
		if visited[name] {
			return trace, fmt.Errorf("node %q visited twice", name)
		}
		visited[name] = true
		trace = append(trace, name)

		start := time.Now()
		err := c.runNode(ctx, name, state)
		observeStage(name, time.Since(start))
		if err != nil {
			return trace, &StepError{Node: name, Err: err}
		}
		if name == c.exit {
			return trace, nil
		}

		next, err := c.next(name, state)
		if err != nil {
			return trace, err
		}
		name = next
	}
}

func (c *Compiled[S]) runNode(ctx context.Context, name string, state S) error {
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = c.nodes[name](ctx, state) })
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}

func (c *Compiled[S]) next(name string, state S) (string, error) {
	if to, ok := c.edges[name]; ok {
		return to, nil
	}
	b := c.branches[name]
	to := b.selector(state)
	if !slices.Contains(b.targets, to) {
		return "", fmt.Errorf("branch from %q selected undeclared target %q", name, to)
	}
	return to, nil
}
