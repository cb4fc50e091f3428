package scenario

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/awalterschulze/gographviz"
)

// Compiler turns a DOT digraph into a Plan. Every node is an action; an edge
// a -> b means b depends on a. Node attributes:
//
//	cost         non-negative number
//	duration     Go duration ("36h", "90m"), days ("14d") or plain hours ("8")
//	probability  base success probability in [0,1], defaults to 1
//	capability   reliability lookup key
//	effects      comma-separated effect generator names
//	description  free text; label is accepted as a fallback
//
// Graph attributes: label overrides the graph name, benefit is the value of
// success, and reliability lists capability scores as "cap=0.9, other=0.8".
//
// The returned actions keep the order in which nodes first appear.
type Compiler struct{}

func NewCompiler() *Compiler { return &Compiler{} }

func (c *Compiler) Compile(dot string) (*Plan, error) {
	ast, err := gographviz.ParseString(dot)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOT: %w", err)
	}

	b := newPlanBuilder()
	if err := gographviz.Analyse(ast, b); err != nil {
		return nil, fmt.Errorf("failed to analyze DOT: %w", err)
	}
	if !b.directed {
		return nil, fmt.Errorf("plan must be a digraph")
	}

	plan := &Plan{Name: b.name}
	if label := b.graphAttrs["label"]; label != "" {
		plan.Name = label
	}
	if raw := b.graphAttrs["benefit"]; raw != "" {
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("graph benefit %q is not a number", raw)
		}
		plan.Benefit = v
	}
	if raw := b.graphAttrs["reliability"]; raw != "" {
		rel, err := parseScores(raw)
		if err != nil {
			return nil, fmt.Errorf("graph reliability: %w", err)
		}
		plan.Reliability = rel
	}

	for _, id := range b.order {
		n := b.nodes[id]
		a, err := nodeAction(id, n.attrs)
		if err != nil {
			return nil, err
		}
		a.DependsOn = n.deps
		plan.Actions = append(plan.Actions, a)
	}

	return plan, nil
}

func nodeAction(id string, attrs map[string]string) (Action, error) {
	a := Action{
		Name:        id,
		Description: attrs["description"],
		Capability:  attrs["capability"],
		Probability: 1,
	}
	if a.Description == "" {
		a.Description = attrs["label"]
	}

	if raw := attrs["probability"]; raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Action{}, &InvalidActionError{Action: id, Reason: fmt.Sprintf("probability %q is not a number", raw)}
		}
		a.Probability = p
	}
	if raw := attrs["cost"]; raw != "" {
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, "_", ""), 64)
		if err != nil {
			return Action{}, &InvalidActionError{Action: id, Reason: fmt.Sprintf("cost %q is not a number", raw)}
		}
		a.Cost = v
	}
	if raw := attrs["duration"]; raw != "" {
		d, err := ParseDuration(raw)
		if err != nil {
			return Action{}, &InvalidActionError{Action: id, Reason: err.Error()}
		}
		a.Duration = d
	}
	if raw := attrs["effects"]; raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				a.Effects = append(a.Effects, name)
			}
		}
	}
	return a, nil
}

// parseScores reads "key=value" pairs separated by commas. Values must be
// numbers.
func parseScores(raw string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid assignment %q (expected key=value)", part)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("empty key in assignment %q", part)
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("value for %q is not a number", key)
		}
		out[key] = v
	}
	return out, nil
}

// ParseDuration accepts Go durations, whole or fractional days with a "d"
// suffix, and bare numbers read as hours.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		v, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("duration %q: invalid days", s)
		}
		return time.Duration(v * 24 * float64(time.Hour)), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(v * float64(time.Hour)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	return d, nil
}

type dotNode struct {
	attrs map[string]string
	deps  []string
}

// planBuilder receives the analysed DOT statements in source order. It keeps
// arbitrary attributes, which gographviz.Graph would reject.
type planBuilder struct {
	name       string
	directed   bool
	graphAttrs map[string]string
	nodes      map[string]*dotNode
	order      []string
}

func newPlanBuilder() *planBuilder {
	return &planBuilder{
		graphAttrs: map[string]string{},
		nodes:      map[string]*dotNode{},
	}
}

func (b *planBuilder) SetStrict(bool) error { return nil }

func (b *planBuilder) SetDir(directed bool) error {
	b.directed = directed
	return nil
}

func (b *planBuilder) SetName(name string) error {
	b.name = unquote(name)
	return nil
}

func (b *planBuilder) AddPortEdge(src, srcPort, dst, dstPort string, directed bool, attrs map[string]string) error {
	return b.AddEdge(src, dst, directed, attrs)
}

func (b *planBuilder) AddEdge(src, dst string, directed bool, _ map[string]string) error {
	if !directed {
		return fmt.Errorf("undirected edge %s -- %s", src, dst)
	}
	src, dst = unquote(src), unquote(dst)
	if _, ok := b.nodes[src]; !ok {
		return fmt.Errorf("edge references unknown node %q", src)
	}
	to, ok := b.nodes[dst]
	if !ok {
		return fmt.Errorf("edge references unknown node %q", dst)
	}
	to.deps = append(to.deps, src)
	return nil
}

func (b *planBuilder) AddNode(_ string, name string, attrs map[string]string) error {
	name = unquote(name)
	n, ok := b.nodes[name]
	if !ok {
		n = &dotNode{attrs: map[string]string{}}
		b.nodes[name] = n
		b.order = append(b.order, name)
	}
	for k, v := range attrs {
		n.attrs[k] = unquote(v)
	}
	return nil
}

func (b *planBuilder) AddAttr(parentGraph string, field, value string) error {
	if unquote(parentGraph) == b.name {
		b.graphAttrs[field] = unquote(value)
	}
	return nil
}

func (b *planBuilder) AddSubGraph(string, string, map[string]string) error { return nil }

func (b *planBuilder) String() string { return b.name }

// unquote strips the surrounding quotes gographviz keeps on quoted IDs.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return s
}
