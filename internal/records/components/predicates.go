package components

import (
	"fmt"

	"rdmrecords/internal/pids/providers"
	"rdmrecords/internal/records/models"
)

// Predicate decides, for a record being published, whether a conditional
// parent scheme is required.
type Predicate func(record *models.Record) bool

// ProviderLookup resolves a provider by scheme and name.
type ProviderLookup interface {
	Get(scheme, name string) (providers.Provider, error)
}

// ManagedDOI holds when the record's DOI is minted by this repository. A
// concept DOI only makes sense next to managed version DOIs.
func ManagedDOI(lookup ProviderLookup) Predicate {
	return func(record *models.Record) bool {
		doi, ok := models.PIDsOf(record).Get("doi")
		if !ok {
			return false
		}
		p, err := lookup.Get("doi", doi.Provider)
		if err != nil {
			return false
		}
		return p.IsManaged()
	}
}

// PublicRecord holds for records whose metadata is public.
func PublicRecord(record *models.Record) bool {
	return record != nil && !record.IsRestricted()
}

// Conditions resolves the predicate names of a parent policy.
func Conditions(names map[string]string, lookup ProviderLookup) (map[string]Predicate, error) {
	known := map[string]Predicate{
		"managed_doi":   ManagedDOI(lookup),
		"public_record": PublicRecord,
	}
	out := make(map[string]Predicate, len(names))
	for scheme, name := range names {
		p, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("unknown parent pid condition %q for scheme %s", name, scheme)
		}
		out[scheme] = p
	}
	return out, nil
}
