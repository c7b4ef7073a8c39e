package movement

import (
	"fmt"

	"github.com/ayusman/formcheck/internal/pose"
)

// Override replaces selected fields of a built-in spec. Nil fields keep the default.
type Override struct {
	Target          *float64 `json:"target,omitempty" toml:"target"`
	SecondaryTarget *float64 `json:"secondary_target,omitempty" toml:"secondary_target"`
	Tolerance       *float64 `json:"tolerance,omitempty" toml:"tolerance"`
	MinTorso        *float64 `json:"min_torso,omitempty" toml:"min_torso"`
}

// IsZero reports whether the override changes nothing.
func (o Override) IsZero() bool {
	return o.Target == nil && o.SecondaryTarget == nil && o.Tolerance == nil && o.MinTorso == nil
}

func (o Override) apply(s Spec) Spec {
	if o.Target != nil {
		s.Target = *o.Target
	}
	if o.SecondaryTarget != nil {
		s.SecondaryTarget = *o.SecondaryTarget
	}
	if o.Tolerance != nil {
		s.Tolerance = *o.Tolerance
	}
	if o.MinTorso != nil {
		s.MinTorso = *o.MinTorso
	}
	return s
}

// Config holds the rule set tuning.
type Config struct {
	// Tolerance applies to every movement without its own tolerance override.
	Tolerance float64
	// Overrides adjusts individual movements.
	Overrides map[Type]Override
}

// DefaultConfig returns a Config with the standard tolerance and no overrides.
func DefaultConfig() Config {
	return Config{
		Tolerance: DefaultTolerance,
	}
}

// RuleSet holds one validated spec per supported movement.
type RuleSet struct {
	config Config
	specs  map[Type]Spec
}

// NewRuleSet builds and validates the spec of every movement. Any invalid spec
// fails the whole rule set.
func NewRuleSet(config Config) (*RuleSet, error) {
	for t := range config.Overrides {
		if !t.Valid() {
			return nil, fmt.Errorf("override: %w: %d", ErrUnknownMovement, int(t))
		}
	}

	specs := make(map[Type]Spec, len(Types()))
	for _, t := range Types() {
		s, err := DefaultSpec(t, config.Tolerance)
		if err != nil {
			return nil, err
		}
		if o, ok := config.Overrides[t]; ok {
			s = o.apply(s)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		specs[t] = s
	}

	overrides := make(map[Type]Override, len(config.Overrides))
	for t, o := range config.Overrides {
		overrides[t] = o
	}
	config.Overrides = overrides

	return &RuleSet{config: config, specs: specs}, nil
}

// Config returns a copy of the configuration the rule set was built from.
func (r *RuleSet) Config() Config {
	c := r.config
	c.Overrides = make(map[Type]Override, len(r.config.Overrides))
	for t, o := range r.config.Overrides {
		c.Overrides[t] = o
	}
	return c
}

// Spec returns the spec for t.
func (r *RuleSet) Spec(t Type) (Spec, error) {
	s, ok := r.specs[t]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrUnknownMovement, t)
	}
	return s.clone(), nil
}

// Specs returns every spec in display order.
func (r *RuleSet) Specs() []Spec {
	specs := make([]Spec, 0, len(r.specs))
	for _, t := range Types() {
		specs = append(specs, r.specs[t].clone())
	}
	return specs
}

// WithOverride returns a new rule set with o applied to t, leaving r unchanged.
// A zero override removes any existing override for t.
func (r *RuleSet) WithOverride(t Type, o Override) (*RuleSet, error) {
	c := r.Config()
	if o.IsZero() {
		delete(c.Overrides, t)
	} else {
		c.Overrides[t] = o
	}
	return NewRuleSet(c)
}

// Evaluate looks up the spec for t and evaluates the frame against it.
func (r *RuleSet) Evaluate(frame *pose.Frame, t Type) (Verdict, error) {
	s, ok := r.specs[t]
	if !ok {
		return Verdict{}, fmt.Errorf("%w: %s", ErrUnknownMovement, t)
	}
	return Evaluate(frame, s), nil
}
