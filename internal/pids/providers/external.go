package providers

import (
	"context"
	"regexp"

	"rdmrecords/internal/pids/models"
)

var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// External records identifiers minted elsewhere (e.g. a DOI the depositor
// already owns). The value is always user supplied and never sent to an
// authority by this system.
type External struct {
	base
}

func NewExternal(name, scheme string, deps Deps) *External {
	if name == "" {
		name = "external"
	}
	return &External{base: newBase(name, scheme, "", deps)}
}

func (e *External) IsManaged() bool                { return false }
func (e *External) RequiresPublicVisibility() bool { return false }

func (e *External) Create(ctx context.Context, entity models.Entity, pid models.PID) (models.PID, error) {
	if problems := e.checkValue(pid.Identifier); len(problems) > 0 {
		return models.PID{}, NewProviderError(ErrorBadData, e, "create", problems[0], nil)
	}
	return e.createValue(ctx, entity, pid.Identifier)
}

func (e *External) Register(ctx context.Context, _ models.Entity, pid models.PID) (out models.PID, err error) {
	defer func() { e.observe("register", err) }()
	return e.markRegistered(ctx, pid)
}

func (e *External) Update(context.Context, models.Entity, models.PID) error {
	return nil
}

func (e *External) Validate(ctx context.Context, entity models.Entity, pid models.PID) ([]string, error) {
	if problems := e.checkValue(pid.Identifier); len(problems) > 0 {
		return problems, nil
	}
	return e.checkOwnership(ctx, entity, pid)
}

func (e *External) checkValue(value string) []string {
	if value == "" {
		return []string{"Missing " + schemeLabel(e.scheme) + " for required field."}
	}
	if e.scheme == "doi" && !doiPattern.MatchString(value) {
		return []string{"Invalid DOI " + value + "."}
	}
	return nil
}

func schemeLabel(scheme string) string {
	if scheme == "doi" {
		return "DOI"
	}
	return scheme
}
