package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"rdmrecords/pkg/platform/strings"
)

// PIDPolicy is the process-wide, read-only scheme configuration.
//
// Example file:
//
//	record:
//	  required: [doi, oai]
//	parent:
//	  required: [doi]
//	  conditional:
//	    doi: managed_doi
//	schemes:
//	  doi:
//	    default: datacite
//	    providers:
//	      - {name: datacite, type: datacite, prefix: "10.1234", id_prefix: rdm}
//	      - {name: external, type: external}
//	  oai:
//	    default: oai
//	    providers:
//	      - {name: oai, type: oai, host: repo.example.org}
type PIDPolicy struct {
	Record  RecordPolicy            `yaml:"record"`
	Parent  ParentPolicy            `yaml:"parent"`
	Schemes map[string]SchemePolicy `yaml:"schemes"`
}

type RecordPolicy struct {
	Required []string `yaml:"required"`
}

// ParentPolicy lists required parent schemes. Conditional maps a scheme to
// the name of a predicate evaluated against the published record; the
// scheme is only required when the predicate holds.
type ParentPolicy struct {
	Required    []string          `yaml:"required"`
	Conditional map[string]string `yaml:"conditional"`
}

type SchemePolicy struct {
	Default   string           `yaml:"default"`
	Providers []ProviderPolicy `yaml:"providers"`
}

// ProviderPolicy configures one provider instance. Type selects the
// implementation; the remaining fields are interpreted by it.
type ProviderPolicy struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Client      string `yaml:"client"`
	Prefix      string `yaml:"prefix"`
	IDPrefix    string `yaml:"id_prefix"`
	Host        string `yaml:"host"`
	LandingBase string `yaml:"landing_base"`
}

// DefaultPolicy is used when no policy file is configured: a managed DOI
// with an external alternative, plus OAI identifiers for records.
func DefaultPolicy(cfg PIDsConfig) PIDPolicy {
	return PIDPolicy{
		Record: RecordPolicy{Required: []string{"doi", "oai"}},
		Parent: ParentPolicy{
			Required:    []string{"doi"},
			Conditional: map[string]string{"doi": "managed_doi"},
		},
		Schemes: map[string]SchemePolicy{
			"doi": {
				Default: "datacite",
				Providers: []ProviderPolicy{
					{Name: "datacite", Type: "datacite", Client: "datacite", Prefix: cfg.DOIPrefix, IDPrefix: cfg.DOIIDPrefix, LandingBase: cfg.LandingBase},
					{Name: "external", Type: "external"},
				},
			},
			"oai": {
				Default:   "oai",
				Providers: []ProviderPolicy{{Name: "oai", Type: "oai", Host: cfg.OAIHost}},
			},
		},
	}
}

// LoadPIDPolicy reads the policy from cfg.PolicyFile, or returns the
// default policy when none is set.
func LoadPIDPolicy(cfg PIDsConfig) (PIDPolicy, error) {
	if cfg.PolicyFile == "" {
		return DefaultPolicy(cfg), nil
	}
	data, err := os.ReadFile(cfg.PolicyFile)
	if err != nil {
		return PIDPolicy{}, fmt.Errorf("read pid policy: %w", err)
	}
	return ParsePIDPolicy(data)
}

// ParsePIDPolicy decodes and normalizes a YAML policy. Unknown keys are
// rejected so typos fail at startup rather than silently disabling a scheme.
func ParsePIDPolicy(data []byte) (PIDPolicy, error) {
	var p PIDPolicy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return PIDPolicy{}, fmt.Errorf("parse pid policy: %w", err)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return PIDPolicy{}, err
	}
	return p, nil
}

func (p *PIDPolicy) normalize() {
	p.Record.Required = strings.NormalizeNames(p.Record.Required)
	p.Parent.Required = strings.NormalizeNames(p.Parent.Required)
	schemes := make(map[string]SchemePolicy, len(p.Schemes))
	for name, sp := range p.Schemes {
		names := strings.NormalizeNames([]string{name})
		if len(names) == 0 {
			continue
		}
		schemes[names[0]] = sp
	}
	p.Schemes = schemes
}

// Validate checks that every required scheme is configured and each scheme
// has a resolvable default provider.
func (p PIDPolicy) Validate() error {
	for _, scheme := range append(append([]string{}, p.Record.Required...), p.Parent.Required...) {
		if _, ok := p.Schemes[scheme]; !ok {
			return fmt.Errorf("pid policy: required scheme %q has no providers", scheme)
		}
	}
	for scheme := range p.Parent.Conditional {
		if _, ok := p.Schemes[scheme]; !ok {
			return fmt.Errorf("pid policy: conditional scheme %q has no providers", scheme)
		}
	}
	for _, scheme := range p.SchemeNames() {
		sp := p.Schemes[scheme]
		if len(sp.Providers) == 0 {
			return fmt.Errorf("pid policy: scheme %q has no providers", scheme)
		}
		found := false
		for _, pp := range sp.Providers {
			if pp.Name == "" || pp.Type == "" {
				return fmt.Errorf("pid policy: scheme %q has a provider without name or type", scheme)
			}
			if pp.Name == sp.Default {
				found = true
			}
		}
		if sp.Default != "" && !found {
			return fmt.Errorf("pid policy: scheme %q default provider %q is not configured", scheme, sp.Default)
		}
	}
	return nil
}

// SchemeNames returns the configured schemes in sorted order.
func (p PIDPolicy) SchemeNames() []string {
	names := make([]string, 0, len(p.Schemes))
	for name := range p.Schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
