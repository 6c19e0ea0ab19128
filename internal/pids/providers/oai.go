package providers

import (
	"context"
	"fmt"
	"strings"

	"rdmrecords/internal/pids/models"
)

// OAI mints local OAI-PMH identifiers of the form oai:<host>:<id>. They
// never leave the repository, so registration is a status change only.
type OAI struct {
	base
	host string
}

func NewOAI(name, host string, deps Deps) *OAI {
	if name == "" {
		name = "oai"
	}
	return &OAI{base: newBase(name, "oai", "", deps), host: host}
}

func (o *OAI) IsManaged() bool                { return true }
func (o *OAI) RequiresPublicVisibility() bool { return false }

func (o *OAI) Generate(entity models.Entity) string {
	return fmt.Sprintf("oai:%s:%s", o.host, entity.EntityID())
}

func (o *OAI) Create(ctx context.Context, entity models.Entity, pid models.PID) (models.PID, error) {
	value := pid.Identifier
	if value == "" {
		value = o.Generate(entity)
	}
	return o.createValue(ctx, entity, value)
}

func (o *OAI) Register(ctx context.Context, _ models.Entity, pid models.PID) (out models.PID, err error) {
	defer func() { o.observe("register", err) }()
	return o.markRegistered(ctx, pid)
}

func (o *OAI) Update(context.Context, models.Entity, models.PID) error {
	return nil
}

func (o *OAI) Validate(ctx context.Context, entity models.Entity, pid models.PID) ([]string, error) {
	if pid.Identifier != "" && !strings.HasPrefix(pid.Identifier, "oai:"+o.host+":") {
		return []string{fmt.Sprintf("OAI identifiers must start with oai:%s:.", o.host)}, nil
	}
	return o.checkOwnership(ctx, entity, pid)
}
