// Package planfile loads plan documents from YAML or DOT files.
package planfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

// Document is a plan plus the simulation settings stored alongside it.
type Document struct {
	Name        string                             `yaml:"name" json:"name"`
	Trials      int                                `yaml:"trials,omitempty" json:"trials,omitempty"`
	Benefit     float64                            `yaml:"benefit,omitempty" json:"benefit,omitempty"`
	Postures    []string                           `yaml:"postures,omitempty" json:"postures,omitempty"`
	Seed        *int64                             `yaml:"seed,omitempty" json:"seed,omitempty"`
	Reliability map[string]float64                 `yaml:"reliability,omitempty" json:"reliability,omitempty"`
	Admission   *scenario.Admission                `yaml:"admission,omitempty" json:"admission,omitempty"`
	Effects     map[string]scenario.ExprEffectSpec `yaml:"effects,omitempty" json:"effects,omitempty"`
	Actions     []ActionSpec                       `yaml:"actions" json:"actions"`
}

// ActionSpec is the serialized form of scenario.Action.
type ActionSpec struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Duration    Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	Cost        float64  `yaml:"cost,omitempty" json:"cost,omitempty"`
	Probability *float64 `yaml:"probability,omitempty" json:"probability,omitempty"`
	DependsOn   []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Effects     []string `yaml:"effects,omitempty" json:"effects,omitempty"`
	Capability  string   `yaml:"capability,omitempty" json:"capability,omitempty"`
}

// Action builds the scenario action. A missing probability means certain
// success.
func (s ActionSpec) Action() scenario.Action {
	p := 1.0
	if s.Probability != nil {
		p = *s.Probability
	}
	return scenario.Action{
		Name:        s.Name,
		Description: s.Description,
		Duration:    time.Duration(s.Duration),
		Cost:        s.Cost,
		Probability: p,
		DependsOn:   slices.Clone(s.DependsOn),
		Effects:     slices.Clone(s.Effects),
		Capability:  s.Capability,
	}
}

func SpecFromAction(a scenario.Action) ActionSpec {
	p := a.Probability
	return ActionSpec{
		Name:        a.Name,
		Description: a.Description,
		Duration:    Duration(a.Duration),
		Cost:        a.Cost,
		Probability: &p,
		DependsOn:   slices.Clone(a.DependsOn),
		Effects:     slices.Clone(a.Effects),
		Capability:  a.Capability,
	}
}

// Duration accepts the forms understood by scenario.ParseDuration, and bare
// numbers (hours) in JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := scenario.ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var err error
		if raw, err = strconv.Unquote(raw); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
	}
	v, err := scenario.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Load reads a plan document, choosing the format by file extension.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	var doc *Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	case ".dot", ".gv":
		doc, err = ParseDOT(string(data))
	default:
		return nil, fmt.Errorf("unsupported plan file extension %q (want .yaml, .yml, .dot or .gv)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// ParseYAML decodes a YAML plan document. Unknown fields are rejected.
func ParseYAML(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	return &doc, nil
}

// ParseDOT compiles a DOT plan. Settings other than the name are left empty.
func ParseDOT(src string) (*Document, error) {
	plan, err := scenario.NewCompiler().Compile(src)
	if err != nil {
		return nil, err
	}
	return FromPlan(plan), nil
}

func FromPlan(plan *scenario.Plan) *Document {
	doc := &Document{
		Name:        plan.Name,
		Benefit:     plan.Benefit,
		Reliability: maps.Clone(plan.Reliability),
		Actions:     make([]ActionSpec, len(plan.Actions)),
	}
	for i, a := range plan.Actions {
		doc.Actions[i] = SpecFromAction(a)
	}
	return doc
}

func (d *Document) Plan() *scenario.Plan {
	plan := &scenario.Plan{
		Name:        d.Name,
		Benefit:     d.Benefit,
		Reliability: maps.Clone(d.Reliability),
		Actions:     make([]scenario.Action, len(d.Actions)),
	}
	for i, s := range d.Actions {
		plan.Actions[i] = s.Action()
	}
	return plan
}

// Registry returns base extended with the document's expression effects.
// base itself is never modified.
func (d *Document) Registry(base *scenario.Registry) (*scenario.Registry, error) {
	if len(d.Effects) == 0 {
		return base, nil
	}
	reg := base.Clone()

	names := make([]string, 0, len(d.Effects))
	for name := range d.Effects {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		eff, err := scenario.NewExprEffect(d.Effects[name])
		if err != nil {
			return nil, fmt.Errorf("effect %q: %w", name, err)
		}
		if err := reg.Register(name, eff); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Request builds a simulation request from the document. trials overrides
// the document's trial count when positive.
func (d *Document) Request(base *scenario.Registry, trials int) (scenario.Request, error) {
	postures, err := scenario.ParsePostures(d.Postures)
	if err != nil {
		return scenario.Request{}, err
	}
	reg, err := d.Registry(base)
	if err != nil {
		return scenario.Request{}, err
	}
	if trials <= 0 {
		trials = d.Trials
	}

	return scenario.Request{
		Name:        d.Name,
		Actions:     d.Plan().Actions,
		Trials:      trials,
		Postures:    postures,
		Seed:        d.Seed,
		Benefit:     d.Benefit,
		Reliability: d.Reliability,
		Admission:   d.Admission,
		Registry:    reg,
	}, nil
}
