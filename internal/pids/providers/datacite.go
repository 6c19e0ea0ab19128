package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rdmrecords/internal/pids/models"
)

// DataCiteConfig configures a managed DOI provider.
type DataCiteConfig struct {
	Name        string
	Client      string
	Prefix      string
	IDPrefix    string
	LandingBase string
}

// DataCite mints DOIs under the repository's own prefix and registers them
// with the authority through a Registrar. DOIs it mints resolve to public
// landing pages, so restricted entities cannot use it.
type DataCite struct {
	base
	prefix      string
	idPrefix    string
	landingBase string
	registrar   Registrar
}

func NewDataCite(cfg DataCiteConfig, deps Deps) *DataCite {
	name := cfg.Name
	if name == "" {
		name = "datacite"
	}
	registrar := deps.Registrar
	if registrar == nil {
		registrar = NewInMemoryRegistrar()
	}
	return &DataCite{
		base:        newBase(name, "doi", cfg.Client, deps),
		prefix:      strings.TrimSuffix(cfg.Prefix, "/"),
		idPrefix:    cfg.IDPrefix,
		landingBase: strings.TrimSuffix(cfg.LandingBase, "/"),
		registrar:   registrar,
	}
}

func (d *DataCite) IsManaged() bool                { return true }
func (d *DataCite) RequiresPublicVisibility() bool { return true }

// Generate returns the DOI minted for entity, e.g. "10.1234/rdm.abc12".
func (d *DataCite) Generate(entity models.Entity) string {
	local := entity.EntityID()
	if d.idPrefix != "" {
		local = d.idPrefix + "." + local
	}
	return d.prefix + "/" + strings.ToLower(local)
}

func (d *DataCite) Create(ctx context.Context, entity models.Entity, pid models.PID) (models.PID, error) {
	value := pid.Identifier
	if value == "" {
		value = d.Generate(entity)
	} else if !d.hasPrefix(value) {
		return models.PID{}, NewProviderError(ErrorBadData, d, "create", d.prefixMessage(), nil)
	}
	return d.createValue(ctx, entity, value)
}

func (d *DataCite) Register(ctx context.Context, entity models.Entity, pid models.PID) (out models.PID, err error) {
	defer func() { d.observe("register", err) }()

	if err := d.registrar.Register(ctx, d.request(entity, pid)); err != nil {
		return models.PID{}, d.registrarError("register", err)
	}
	return d.markRegistered(ctx, pid)
}

// Update pushes the current landing page. Deleted DOIs are hidden rather
// than removed, since DOIs cannot be withdrawn once registered.
func (d *DataCite) Update(ctx context.Context, entity models.Entity, pid models.PID) (err error) {
	defer func() { d.observe("update", err) }()

	req := d.request(entity, pid)
	req.Hidden = pid.Status == models.StatusDeleted
	if err := d.registrar.Update(ctx, req); err != nil {
		return d.registrarError("update", err)
	}
	return nil
}

func (d *DataCite) Validate(ctx context.Context, entity models.Entity, pid models.PID) ([]string, error) {
	var problems []string
	if pid.Identifier != "" && !d.hasPrefix(pid.Identifier) {
		problems = append(problems, d.prefixMessage())
	}
	owned, err := d.checkOwnership(ctx, entity, pid)
	if err != nil {
		return nil, err
	}
	return append(problems, owned...), nil
}

func (d *DataCite) hasPrefix(value string) bool {
	return strings.HasPrefix(value, d.prefix+"/")
}

func (d *DataCite) prefixMessage() string {
	return fmt.Sprintf("Wrong DOI prefix provided, it should be %s as defined in the rdm instance.", d.prefix)
}

func (d *DataCite) request(entity models.Entity, pid models.PID) RegistrationRequest {
	url := d.landingBase + "/records/" + entity.EntityID()
	if entity.EntityType() == models.EntityParent {
		url += "/latest"
	}
	return RegistrationRequest{
		Identifier: pid.Identifier,
		URL:        url,
		EntityType: string(entity.EntityType()),
		EntityID:   entity.EntityID(),
	}
}

func (d *DataCite) registrarError(op string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case errors.Is(err, ErrRegistrarUnavailable):
		return NewProviderError(ErrorProviderOutage, d, op, "registrar circuit open", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ErrorTimeout, d, op, "registrar timed out", err)
	default:
		return NewProviderError(ErrorProviderOutage, d, op, "registrar call failed", err)
	}
}
