package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testState struct {
	visits []string
	route  string
}

func record(name string) NodeFunc[*testState] {
	return func(_ context.Context, s *testState) error {
		s.visits = append(s.visits, name)
		return nil
	}
}

func diamond(t *testing.T) *Compiled[*testState] {
	t.Helper()
	g := New[*testState]().
		AddNode("start", record("start")).
		AddNode("left", record("left")).
		AddNode("right", record("right")).
		AddNode("join", record("join")).
		AddNode("end", record("end")).
		AddBranch("start", func(s *testState) string { return s.route }, "left", "right", "join").
		AddEdge("left", "join").
		AddEdge("right", "join").
		AddEdge("join", "end").
		SetEntry("start").
		SetExit("end")
	c, err := g.Compile()
	require.NoError(t, err)
	return c
}

func TestRunFollowsBranch(t *testing.T) {
	c := diamond(t)
	tests := []struct {
		route string
		want  []string
	}{
		{"left", []string{"start", "left", "join", "end"}},
		{"right", []string{"start", "right", "join", "end"}},
		{"join", []string{"start", "join", "end"}},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			s := &testState{route: tt.route}
			trace, err := c.Run(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.visits)
			assert.Equal(t, Trace(tt.want), trace)
		})
	}
}

func TestRunRejectsUndeclaredTarget(t *testing.T) {
	c := diamond(t)
	_, err := c.Run(context.Background(), &testState{route: "end"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared target")
}

func TestRunStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	g := New[*testState]().
		AddNode("a", record("a")).
		AddNode("b", func(context.Context, *testState) error { return boom }).
		AddNode("c", record("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		SetEntry("a").
		SetExit("c")
	c, err := g.Compile()
	require.NoError(t, err)

	s := &testState{}
	trace, err := c.Run(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "b", stepErr.Node)
	assert.Equal(t, Trace{"a", "b"}, trace)
	assert.Equal(t, []string{"a"}, s.visits)
}

func TestRunRecoversPanics(t *testing.T) {
	g := New[*testState]().
		AddNode("a", func(context.Context, *testState) error { panic("kaboom") }).
		SetEntry("a").
		SetExit("a")
	c, err := g.Compile()
	require.NoError(t, err)

	_, err = c.Run(context.Background(), &testState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRunHonoursCancelledContext(t *testing.T) {
	c := diamond(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &testState{route: "left"}
	_, err := c.Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.visits)
}

func TestCompileValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Graph[*testState]
		want  string
	}{
		{
			name:  "no entry",
			build: func() *Graph[*testState] { return New[*testState]().AddNode("a", record("a")).SetExit("a") },
			want:  "entry node not set",
		},
		{
			name:  "no exit",
			build: func() *Graph[*testState] { return New[*testState]().AddNode("a", record("a")).SetEntry("a") },
			want:  "exit node not set",
		},
		{
			name: "undefined target",
			build: func() *Graph[*testState] {
				return New[*testState]().AddNode("a", record("a")).AddEdge("a", "ghost").SetEntry("a").SetExit("a")
			},
			want: "undefined node",
		},
		{
			name: "cycle",
			build: func() *Graph[*testState] {
				return New[*testState]().
					AddNode("a", record("a")).AddNode("b", record("b")).AddNode("c", record("c")).
					AddEdge("a", "b").AddBranch("b", func(*testState) string { return "a" }, "a", "c").
					SetEntry("a").SetExit("c")
			},
			want: "cycle",
		},
		{
			name: "unreachable",
			build: func() *Graph[*testState] {
				return New[*testState]().
					AddNode("a", record("a")).AddNode("b", record("b")).AddNode("orphan", record("o")).
					AddEdge("a", "b").AddEdge("orphan", "b").
					SetEntry("a").SetExit("b")
			},
			want: "unreachable from entry",
		},
		{
			name: "dead end",
			build: func() *Graph[*testState] {
				return New[*testState]().
					AddNode("a", record("a")).AddNode("b", record("b")).AddNode("dead", record("d")).
					AddBranch("a", func(*testState) string { return "b" }, "b", "dead").
					SetEntry("a").SetExit("b")
			},
			want: "exit unreachable",
		},
		{
			name: "two transitions",
			build: func() *Graph[*testState] {
				return New[*testState]().
					AddNode("a", record("a")).AddNode("b", record("b")).
					AddEdge("a", "b").AddEdge("a", "b").
					SetEntry("a").SetExit("b")
			},
			want: "already has an outgoing",
		},
		{
			name: "duplicate node",
			build: func() *Graph[*testState] {
				return New[*testState]().AddNode("a", record("a")).AddNode("a", record("a")).SetEntry("a").SetExit("a")
			},
			want: "added twice",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
