package scenario

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Graph is a validated, immutable action graph. It is safe for concurrent use
// by any number of trials.
type Graph struct {
	actions []Action
	index   map[string]int
	deps    [][]int
	succ    [][]int
	order   []int
	sinks   []int
	effects [][]EffectGenerator
}

type color uint8

const (
	white color = iota
	gray
	black
)

// BuildGraph validates actions and computes their execution order. Ties between
// ready actions are broken by declaration order. Effect names are resolved
// against reg; a nil registry only accepts actions without effects.
func BuildGraph(actions []Action, reg *Registry) (*Graph, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}

	g := &Graph{
		actions: make([]Action, len(actions)),
		index:   make(map[string]int, len(actions)),
		deps:    make([][]int, len(actions)),
		succ:    make([][]int, len(actions)),
		effects: make([][]EffectGenerator, len(actions)),
	}

	for i, a := range actions {
		if err := validateAction(a); err != nil {
			return nil, err
		}
		if _, dup := g.index[a.Name]; dup {
			return nil, &DuplicateActionError{Name: a.Name}
		}
		a.DependsOn = slices.Clone(a.DependsOn)
		a.Effects = slices.Clone(a.Effects)
		g.actions[i] = a
		g.index[a.Name] = i
	}

	for i, a := range g.actions {
		seen := make(map[int]struct{}, len(a.DependsOn))
		for _, dep := range a.DependsOn {
			j, ok := g.index[dep]
			if !ok {
				return nil, &UnknownDependencyError{Action: a.Name, Dependency: dep}
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			g.deps[i] = append(g.deps[i], j)
			g.succ[j] = append(g.succ[j], i)
		}

		for _, name := range a.Effects {
			gen, ok := reg.Lookup(name)
			if !ok {
				return nil, &UnknownEffectError{Action: a.Name, Effect: name}
			}
			g.effects[i] = append(g.effects[i], gen)
		}
	}

	if err := g.detectCycle(); err != nil {
		return nil, err
	}

	g.order = g.topoOrder()
	for i := range g.actions {
		if len(g.succ[i]) == 0 {
			g.sinks = append(g.sinks, i)
		}
	}

	return g, nil
}

func validateAction(a Action) error {
	if strings.TrimSpace(a.Name) == "" {
		return &InvalidActionError{Reason: "name is required"}
	}
	if math.IsNaN(a.Probability) || a.Probability < 0 || a.Probability > 1 {
		return &InvalidActionError{Action: a.Name, Reason: fmt.Sprintf("probability %v outside [0,1]", a.Probability)}
	}
	if math.IsNaN(a.Cost) || math.IsInf(a.Cost, 0) || a.Cost < 0 {
		return &InvalidActionError{Action: a.Name, Reason: fmt.Sprintf("cost %v must be a non-negative number", a.Cost)}
	}
	if a.Duration < 0 {
		return &InvalidActionError{Action: a.Name, Reason: fmt.Sprintf("duration %s must be non-negative", a.Duration)}
	}
	return nil
}

// detectCycle runs a three-colour DFS over the "depends on" relation.
func (g *Graph) detectCycle() error {
	colors := make([]color, len(g.actions))
	var stack []int

	var visit func(v int) []int
	visit = func(v int) []int {
		colors[v] = gray
		stack = append(stack, v)
		for _, d := range g.deps[v] {
			switch colors[d] {
			case gray:
				start := slices.Index(stack, d)
				cycle := append(slices.Clone(stack[start:]), d)
				return cycle
			case white:
				if c := visit(d); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		colors[v] = black
		return nil
	}

	for v := range g.actions {
		if colors[v] != white {
			continue
		}
		if c := visit(v); c != nil {
			members := make([]string, len(c))
			for i, idx := range c {
				members[i] = g.actions[idx].Name
			}
			return &CycleError{Members: members}
		}
	}
	return nil
}

// topoOrder is Kahn's algorithm with the ready set kept sorted by declaration
// index. The graph is known to be acyclic.
func (g *Graph) topoOrder() []int {
	indegree := make([]int, len(g.actions))
	var ready []int
	for i := range g.actions {
		indegree[i] = len(g.deps[i])
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(g.actions))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, s := range g.succ[next] {
			indegree[s]--
			if indegree[s] == 0 {
				pos, _ := slices.BinarySearch(ready, s)
				ready = slices.Insert(ready, pos, s)
			}
		}
	}
	return order
}

// Len returns the number of actions.
func (g *Graph) Len() int { return len(g.actions) }

// Order returns action names in execution order.
func (g *Graph) Order() []string {
	return g.names(g.order)
}

// Sinks returns the critical actions: those nothing else depends on.
func (g *Graph) Sinks() []string {
	return g.names(g.sinks)
}

// Successors returns the actions that depend directly on name.
func (g *Graph) Successors(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.succ[i])
}

// Action returns a copy of the named action definition.
func (g *Graph) Action(name string) (Action, bool) {
	i, ok := g.index[name]
	if !ok {
		return Action{}, false
	}
	a := g.actions[i]
	a.DependsOn = slices.Clone(a.DependsOn)
	a.Effects = slices.Clone(a.Effects)
	return a, true
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = g.actions[j].Name
	}
	return out
}
