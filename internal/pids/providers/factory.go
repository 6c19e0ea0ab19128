package providers

import (
	"fmt"

	"rdmrecords/internal/platform/config"
)

// FromPolicy builds a registry with one provider per policy entry.
func FromPolicy(policy config.PIDPolicy, deps Deps) (*Registry, error) {
	reg := NewRegistry()
	for _, scheme := range policy.SchemeNames() {
		sp := policy.Schemes[scheme]
		for _, pp := range sp.Providers {
			p, err := build(scheme, pp, deps)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(p, pp.Name == sp.Default); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func build(scheme string, pp config.ProviderPolicy, deps Deps) (Provider, error) {
	switch pp.Type {
	case "datacite":
		if scheme != "doi" {
			return nil, fmt.Errorf("provider %s: datacite only serves the doi scheme", pp.Name)
		}
		if pp.Prefix == "" {
			return nil, fmt.Errorf("provider %s: datacite needs a prefix", pp.Name)
		}
		return NewDataCite(DataCiteConfig{
			Name:        pp.Name,
			Client:      pp.Client,
			Prefix:      pp.Prefix,
			IDPrefix:    pp.IDPrefix,
			LandingBase: pp.LandingBase,
		}, deps), nil
	case "external":
		return NewExternal(pp.Name, scheme, deps), nil
	case "oai":
		if scheme != "oai" {
			return nil, fmt.Errorf("provider %s: oai only serves the oai scheme", pp.Name)
		}
		return NewOAI(pp.Name, pp.Host, deps), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown type %q", pp.Name, pp.Type)
	}
}
