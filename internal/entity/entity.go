package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
	"github.com/pkg/errors"
)

// Entity is a user defined entity type. Its variables live in their own partition.
type Entity struct {
	ID               uuid.UUID              `json:"id"`
	Name             string                 `json:"name"`
	DisplayName      string                 `json:"displayName"`
	Description      string                 `json:"description,omitempty"`
	SchemaDefinition map[string]interface{} `json:"schemaDefinition"`
	Metadata         map[string]interface{} `json:"metadata"`
	IsActive         bool                   `json:"isActive"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
	CreatedBy        uuid.NullUUID          `json:"createdBy"`
}

type EntityOption func(*Entity)

func WithEntityID(id uuid.UUID) EntityOption {
	return func(e *Entity) { e.ID = id }
}

func WithDescription(description string) EntityOption {
	return func(e *Entity) { e.Description = description }
}

func WithSchemaDefinition(schema map[string]interface{}) EntityOption {
	return func(e *Entity) {
		if schema != nil {
			e.SchemaDefinition = schema
		}
	}
}

func WithEntityMetadata(metadata map[string]interface{}) EntityOption {
	return func(e *Entity) {
		if metadata != nil {
			e.Metadata = metadata
		}
	}
}

func Inactive() EntityOption {
	return func(e *Entity) { e.IsActive = false }
}

func WithEntityCreatedBy(id uuid.UUID) EntityOption {
	return func(e *Entity) { e.CreatedBy = uuid.NullUUID{UUID: id, Valid: true} }
}

// NewEntity builds an active entity with a fresh id. The display name falls
// back to the name.
func NewEntity(name, displayName string, opts ...EntityOption) (*Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("entity name is required")
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = name
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	e := &Entity{
		ID:               uuid.New(),
		Name:             name,
		DisplayName:      displayName,
		SchemaDefinition: map[string]interface{}{},
		Metadata:         map[string]interface{}{},
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return e, nil
}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusArchived Status = "ARCHIVED"
	StatusDeleted  Status = "DELETED"
)

// ParseStatus accepts the stored form only.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusInactive, StatusArchived, StatusDeleted:
		return st, nil
	}
	return "", errors.Errorf("unknown instance status %q", s)
}

// Instance is one occurrence of an entity. CorrelationID is the caller facing
// identifier and is unique across all instances.
type Instance struct {
	ID            uuid.UUID              `json:"id"`
	EntityID      uuid.UUID              `json:"entityId"`
	CorrelationID uuid.UUID              `json:"uuid"`
	Status        Status                 `json:"status"`
	RegisteredAt  time.Time              `json:"registeredAt"`
	ExpiresAt     *time.Time             `json:"expiresAt,omitempty"`
	Context       map[string]interface{} `json:"context"`
	Metadata      map[string]interface{} `json:"metadata"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	CreatedBy     uuid.NullUUID          `json:"createdBy"`
}

type InstanceOption func(*Instance)

func WithInstanceID(id uuid.UUID) InstanceOption {
	return func(i *Instance) { i.ID = id }
}

func WithStatus(status Status) InstanceOption {
	return func(i *Instance) { i.Status = status }
}

func RegisteredAt(t time.Time) InstanceOption {
	return func(i *Instance) {
		if !t.IsZero() {
			i.RegisteredAt = t.UTC()
		}
	}
}

func ExpiresAt(t time.Time) InstanceOption {
	return func(i *Instance) {
		t = t.UTC()
		i.ExpiresAt = &t
	}
}

func WithContext(ctx map[string]interface{}) InstanceOption {
	return func(i *Instance) {
		if ctx != nil {
			i.Context = ctx
		}
	}
}

func WithInstanceMetadata(metadata map[string]interface{}) InstanceOption {
	return func(i *Instance) {
		if metadata != nil {
			i.Metadata = metadata
		}
	}
}

func WithInstanceCreatedBy(id uuid.UUID) InstanceOption {
	return func(i *Instance) { i.CreatedBy = uuid.NullUUID{UUID: id, Valid: true} }
}

// NewInstance builds an active instance registered now. A nil correlation id
// is replaced by a random one.
func NewInstance(entityID, correlationID uuid.UUID, opts ...InstanceOption) (*Instance, error) {
	if entityID == uuid.Nil {
		return nil, errors.New("instance requires an entity id")
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	i := &Instance{
		ID:            uuid.New(),
		EntityID:      entityID,
		CorrelationID: correlationID,
		Status:        StatusActive,
		RegisteredAt:  now,
		Context:       map[string]interface{}{},
		Metadata:      map[string]interface{}{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if _, err := ParseStatus(string(i.Status)); err != nil {
		return nil, err
	}
	if i.ExpiresAt != nil && i.ExpiresAt.Before(i.RegisteredAt) {
		return nil, errors.New("instance expires before it is registered")
	}
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return i, nil
}

// Owner is what every variable of this instance is stamped with.
func (i *Instance) Owner() variable.Owner {
	return variable.Owner{
		EntityID:     i.EntityID,
		InstanceID:   i.ID,
		RegisteredAt: i.RegisteredAt,
	}
}
