package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/mimiro-io/entity-variable-datalayer/internal/store"
	"github.com/mimiro-io/entity-variable-datalayer/internal/variable"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type VariableService struct {
	variables *store.VariableStore
	instances *InstanceService
	logger    *zap.SugaredLogger
}

func NewVariableService(variables *store.VariableStore, instances *InstanceService, logger *zap.SugaredLogger) *VariableService {
	return &VariableService{
		variables: variables,
		instances: instances,
		logger:    logger.Named("variables"),
	}
}

// Owner resolves the stamp for variables of an existing instance.
func (s *VariableService) Owner(ctx context.Context, instanceID uuid.UUID) (variable.Owner, error) {
	i, err := s.instances.GetInstance(ctx, instanceID)
	if err != nil {
		return variable.Owner{}, err
	}
	return i.Owner(), nil
}

func (s *VariableService) SaveVariable(ctx context.Context, instanceID uuid.UUID, name string, value variable.Value, opts ...variable.Option) (variable.Variable, error) {
	owner, err := s.Owner(ctx, instanceID)
	if err != nil {
		return variable.Variable{}, err
	}
	v, err := variable.New(owner, name, value, opts...)
	if err != nil {
		return variable.Variable{}, err
	}
	return s.variables.Save(ctx, v)
}

// SaveVariables writes a batch owned by one instance. The result is grouped by type.
func (s *VariableService) SaveVariables(ctx context.Context, instanceID uuid.UUID, variables []variable.Variable) ([]variable.Variable, error) {
	owner, err := s.Owner(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	for _, v := range variables {
		if v.InstanceID != owner.InstanceID || v.EntityID != owner.EntityID {
			return nil, errors.Errorf("variable %s does not belong to instance %s", v.Name, instanceID)
		}
	}
	return s.variables.SaveBatch(ctx, variables)
}

func (s *VariableService) GetVariables(ctx context.Context, instanceID uuid.UUID) ([]variable.Variable, error) {
	if _, err := s.instances.GetInstance(ctx, instanceID); err != nil {
		return nil, err
	}
	return s.variables.FindByInstance(ctx, instanceID)
}

func (s *VariableService) GetVariable(ctx context.Context, instanceID uuid.UUID, name string) (variable.Variable, bool, error) {
	return s.variables.FindByInstanceAndName(ctx, instanceID, name)
}

// GetVariablesAsMap maps each name to its plain value. With several writes of
// a name the latest one wins.
func (s *VariableService) GetVariablesAsMap(ctx context.Context, instanceID uuid.UUID) (map[string]interface{}, error) {
	variables, err := s.GetVariables(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	values := make(map[string]interface{}, len(variables))
	for _, v := range variables {
		// ordered by name then id
		values[v.Name] = v.Value.Interface()
	}
	return values, nil
}
