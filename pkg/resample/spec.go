package resample

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/atlaseo/gridalign/pkg/errors"
)

// Policy is the concrete resampling policy for one dataset: a default method
// for the whole dataset plus exact per-variable overrides.
type Policy struct {
	Default   Method
	Overrides map[string]Method
}

// Method returns the method for a variable, falling back to the default.
func (p Policy) Method(variable string) Method {
	if m, ok := p.Overrides[variable]; ok {
		return m
	}
	return p.Default
}

// Spec selects resampling methods per dataset. It is a closed set of tagged
// variants — Global, PerDataset, PerDatasetWithOverrides — resolved through
// explicit dispatch rather than runtime shape probing.
type Spec interface {
	// Resolve returns the policy for a dataset, or a ResamplingSpecError if
	// the dataset has no entry or an entry names an unknown method.
	Resolve(dataset string) (Policy, error)

	isSpec()
}

// Global applies a single method to every dataset and variable.
type Global struct {
	Method Method
}

func (Global) isSpec() {}

// Resolve implements Spec.
func (g Global) Resolve(dataset string) (Policy, error) {
	m, err := Parse(string(g.Method), dataset, "")
	if err != nil {
		return Policy{}, err
	}
	return Policy{Default: m}, nil
}

// PerDataset maps each dataset name to one method with no variable overrides.
type PerDataset map[string]Method

func (PerDataset) isSpec() {}

// Resolve implements Spec.
func (p PerDataset) Resolve(dataset string) (Policy, error) {
	m, ok := p[dataset]
	if !ok {
		return Policy{}, errors.NewResamplingSpecError(dataset, "", "",
			"no resampling entry for dataset")
	}
	parsed, err := Parse(string(m), dataset, "")
	if err != nil {
		return Policy{}, err
	}
	return Policy{Default: parsed}, nil
}

// Rule is one dataset's entry in a PerDatasetWithOverrides spec.
type Rule struct {
	Default Method            `yaml:"default"`
	Vars    map[string]Method `yaml:"vars"`
}

// PerDatasetWithOverrides maps each dataset name to a default method plus
// exact per-variable overrides.
type PerDatasetWithOverrides map[string]Rule

func (PerDatasetWithOverrides) isSpec() {}

// Resolve implements Spec.
func (p PerDatasetWithOverrides) Resolve(dataset string) (Policy, error) {
	rule, ok := p[dataset]
	if !ok {
		return Policy{}, errors.NewResamplingSpecError(dataset, "", "",
			"no resampling entry for dataset")
	}
	if rule.Default == "" {
		return Policy{}, errors.NewResamplingSpecError(dataset, "", "",
			"entry has no default method")
	}

	def, err := Parse(string(rule.Default), dataset, "")
	if err != nil {
		return Policy{}, err
	}

	policy := Policy{Default: def}
	if len(rule.Vars) > 0 {
		policy.Overrides = make(map[string]Method, len(rule.Vars))
		for variable, m := range rule.Vars {
			parsed, err := Parse(string(m), dataset, variable)
			if err != nil {
				return Policy{}, err
			}
			policy.Overrides[variable] = parsed
		}
	}
	return policy, nil
}

// FromValue builds a Spec from a decoded configuration value: a plain string
// becomes Global; a mapping from dataset name to either a string or a
// {default, vars} structure becomes PerDatasetWithOverrides. Anything else is
// a ResamplingSpecError.
func FromValue(value any) (Spec, error) {
	switch v := value.(type) {
	case string:
		m, err := Parse(v, "", "")
		if err != nil {
			return nil, err
		}
		return Global{Method: m}, nil

	case map[string]any:
		out := make(PerDatasetWithOverrides, len(v))
		for dataset, entry := range v {
			rule, err := ruleFromValue(dataset, entry)
			if err != nil {
				return nil, err
			}
			out[dataset] = rule
		}
		return out, nil
	}

	return nil, errors.NewResamplingSpecError("", "", "",
		fmt.Sprintf("spec must be a method name or a per-dataset mapping, got %T", value))
}

func ruleFromValue(dataset string, entry any) (Rule, error) {
	switch e := entry.(type) {
	case string:
		m, err := Parse(e, dataset, "")
		if err != nil {
			return Rule{}, err
		}
		return Rule{Default: m}, nil

	case map[string]any:
		rule := Rule{}
		for key, val := range e {
			switch key {
			case "default":
				s, ok := val.(string)
				if !ok {
					return Rule{}, errors.NewResamplingSpecError(dataset, "", "",
						fmt.Sprintf("default must be a method name, got %T", val))
				}
				m, err := Parse(s, dataset, "")
				if err != nil {
					return Rule{}, err
				}
				rule.Default = m
			case "vars":
				vars, ok := val.(map[string]any)
				if !ok {
					return Rule{}, errors.NewResamplingSpecError(dataset, "", "",
						fmt.Sprintf("vars must map variable names to methods, got %T", val))
				}
				rule.Vars = make(map[string]Method, len(vars))
				for variable, mv := range vars {
					s, ok := mv.(string)
					if !ok {
						return Rule{}, errors.NewResamplingSpecError(dataset, variable, "",
							fmt.Sprintf("override must be a method name, got %T", mv))
					}
					m, err := Parse(s, dataset, variable)
					if err != nil {
						return Rule{}, err
					}
					rule.Vars[variable] = m
				}
			default:
				return Rule{}, errors.NewResamplingSpecError(dataset, "", "",
					fmt.Sprintf("unknown key %q in resampling entry", key))
			}
		}
		if rule.Default == "" {
			return Rule{}, errors.NewResamplingSpecError(dataset, "", "",
				"entry has no default method")
		}
		return rule, nil
	}

	return Rule{}, errors.NewResamplingSpecError(dataset, "", "",
		fmt.Sprintf("entry must be a method name or {default, vars}, got %T", entry))
}

// ParseYAML decodes a YAML document into a Spec via FromValue.
func ParseYAML(data []byte) (Spec, error) {
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, errors.NewResamplingSpecError("", "", "", err.Error())
	}
	return FromValue(value)
}
