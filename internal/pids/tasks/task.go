// Package tasks defers identifier registration until after the request's
// transaction commits.
//
// A task names an entity and a scheme; its body (Handler) loads the entity
// at run time and decides between registering and updating the PID. With
// PostgreSQL the scheduler writes tasks to the pid_task_outbox table inside
// the transaction and a relay moves them to Kafka. In single-process mode
// they go to an in-process dispatcher once the unit of work has committed.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rdmrecords/internal/pids/models"
)

// Task is a register-or-update request for one PID of one entity.
type Task struct {
	ID         uuid.UUID         `json:"id"`
	EntityType models.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Scheme     string            `json:"scheme"`
	CreatedAt  time.Time         `json:"created_at"`
}

func NewTask(entityType models.EntityType, entityID, scheme string) Task {
	return Task{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Scheme:     scheme,
		CreatedAt:  time.Now().UTC(),
	}
}

// Key identifies the PID a task acts on. It is the Kafka record key, so
// tasks for the same PID are consumed in order.
func (t Task) Key() string {
	return fmt.Sprintf("%s:%s:%s", t.EntityType, t.EntityID, t.Scheme)
}

func (t Task) IsParent() bool {
	return t.EntityType == models.EntityParent
}

func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

func Decode(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, fmt.Errorf("decode pid task: %w", err)
	}
	if t.ID == uuid.Nil || t.EntityID == "" || t.Scheme == "" {
		return Task{}, fmt.Errorf("decode pid task: missing id, entity or scheme")
	}
	return t, nil
}
