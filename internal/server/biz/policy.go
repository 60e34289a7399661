package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/fx"

	"github.com/guardpost/guardpost/internal/audit"
	"github.com/guardpost/guardpost/internal/configstore"
	"github.com/guardpost/guardpost/internal/contexts"
	"github.com/guardpost/guardpost/internal/log"
	"github.com/guardpost/guardpost/internal/metrics"
	"github.com/guardpost/guardpost/internal/policy"
)

// PolicyService is the administrative operation handler: the only component
// allowed to mutate the policy registry. Every mutation runs the same
// sequence, serialized end-to-end: validate, read current state, mutate the
// registry, persist the full snapshot, append an audit entry.
type PolicyService struct {
	registry *policy.Registry
	store    *configstore.Store
	audit    *audit.Logger

	// mu serializes administrative mutations so two concurrent calls can
	// never interleave their persist steps.
	mu sync.Mutex
}

// PolicyServiceParams are the dependencies of the PolicyService.
type PolicyServiceParams struct {
	fx.In

	Registry *policy.Registry
	Store    *configstore.Store
	Audit    *audit.Logger
}

// NewPolicyService creates the administrative operation handler. All three
// dependencies are mandatory.
func NewPolicyService(params PolicyServiceParams) *PolicyService {
	if params.Registry == nil || params.Store == nil || params.Audit == nil {
		panic("biz: NewPolicyService requires registry, store and audit logger")
	}

	return &PolicyService{
		registry: params.Registry,
		store:    params.Store,
		audit:    params.Audit,
	}
}

// Bootstrap seeds the registry from the persisted config, falling back to
// secure defaults when the file is missing or corrupt, then persists the
// effective snapshot and records a STARTUP audit entry. Corruption never
// unlocks elevated permissions and never aborts startup.
func (s *PolicyService) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source := "persisted"

	persisted, err := s.store.Load(ctx)

	switch {
	case err == nil:
		s.registry.Seed(persisted.Services)
	case errors.Is(err, configstore.ErrNotFound):
		source = "defaults"
	case errors.Is(err, configstore.ErrCorrupt):
		source = "defaults_after_corruption"

		log.Error(ctx, "persisted config is corrupt, starting from secure defaults", log.Cause(err))
	default:
		return err
	}

	if err := s.persist(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigWrite, err)
	}

	s.auditEntry(ctx, audit.Entry{
		Action: audit.ActionStartup,
		Source: source,
	})

	log.Info(ctx, "policy registry initialized",
		log.Int("services", len(s.registry.All())),
		log.String("source", source),
	)

	return nil
}

// EnableService enables a service at the given permission level.
func (s *PolicyService) EnableService(ctx context.Context, serviceID string, level policy.PermissionLevel) (policy.State, error) {
	if !level.Valid() {
		return policy.State{}, fmt.Errorf("%w: invalid permission level %q", ErrInvalidRequest, level)
	}

	return s.apply(ctx, serviceID, audit.ActionServiceEnable, func(state policy.State) policy.State {
		state.Enabled = true
		state.Level = level

		return state
	})
}

// DisableService disables a service without touching its permission level.
func (s *PolicyService) DisableService(ctx context.Context, serviceID string) (policy.State, error) {
	return s.apply(ctx, serviceID, audit.ActionServiceDisable, func(state policy.State) policy.State {
		state.Enabled = false

		return state
	})
}

// SetPermissionLevel changes the permission level of a service.
func (s *PolicyService) SetPermissionLevel(ctx context.Context, serviceID string, level policy.PermissionLevel) (policy.State, error) {
	if !level.Valid() {
		return policy.State{}, fmt.Errorf("%w: invalid permission level %q", ErrInvalidRequest, level)
	}

	return s.apply(ctx, serviceID, audit.ActionPermissionChange, func(state policy.State) policy.State {
		state.Level = level

		return state
	})
}

// SetAnonymization toggles PII anonymization for a service.
func (s *PolicyService) SetAnonymization(ctx context.Context, serviceID string, enabled bool) (policy.State, error) {
	return s.apply(ctx, serviceID, audit.ActionPIIToggle, func(state policy.State) policy.State {
		state.AnonymizePII = enabled

		return state
	})
}

// ResetService returns a service to the secure default state.
func (s *PolicyService) ResetService(ctx context.Context, serviceID string) (policy.State, error) {
	return s.apply(ctx, serviceID, audit.ActionConfigReset, func(state policy.State) policy.State {
		return policy.DefaultState(state.ServiceID)
	})
}

// ListServices returns the current state of every service.
func (s *PolicyService) ListServices(ctx context.Context) []policy.State {
	return s.registry.All()
}

// RecentAudit returns the last count audit entries, most recent last.
func (s *PolicyService) RecentAudit(ctx context.Context, count int) ([]audit.Entry, error) {
	return s.audit.Recent(ctx, count)
}

// apply runs one administrative mutation end-to-end. If persisting fails
// the registry is rolled back, so memory and disk never silently diverge
// behind a success response.
func (s *PolicyService) apply(ctx context.Context, serviceID string, action audit.Action, mutate func(policy.State) policy.State) (policy.State, error) {
	if serviceID == "" {
		return policy.State{}, fmt.Errorf("%w: service id is required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.registry.Get(serviceID)
	if !ok {
		return policy.State{}, fmt.Errorf("%w: %s", policy.ErrUnknownService, serviceID)
	}

	next := mutate(previous.Clone())

	if _, err := s.registry.Set(serviceID, next); err != nil {
		return policy.State{}, err
	}

	if err := s.persist(ctx); err != nil {
		if _, rbErr := s.registry.Set(serviceID, previous); rbErr != nil {
			log.Error(ctx, "failed to roll back registry after persist failure",
				log.String("service", serviceID),
				log.Cause(rbErr),
			)
		}

		metrics.RecordConfigSaveFailure(ctx)

		return policy.State{}, fmt.Errorf("%w: %v", ErrConfigWrite, err)
	}

	s.auditEntry(ctx, audit.Entry{
		Action:    action,
		ServiceID: serviceID,
		Previous:  describeState(previous),
		New:       describeState(next),
	})

	current, _ := s.registry.Get(serviceID)

	return current, nil
}

func (s *PolicyService) persist(ctx context.Context) error {
	return s.store.Save(ctx, &configstore.PersistedConfig{
		Services: s.registry.Snapshot(),
	})
}

// auditEntry appends to the trail. By policy an audit failure does not
// block the administrative operation, but it is surfaced to operators via
// the log and the failure counter.
func (s *PolicyService) auditEntry(ctx context.Context, entry audit.Entry) {
	if entry.Source == "" {
		if source, ok := contexts.GetSource(ctx); ok {
			entry.Source = string(source)
		} else {
			entry.Source = string(contexts.SourceAdminAPI)
		}
	}

	if err := s.audit.Log(ctx, entry); err != nil {
		metrics.RecordAuditWriteFailure(ctx)

		log.Error(ctx, "audit write failed",
			log.String("action", string(entry.Action)),
			log.String("service", entry.ServiceID),
			log.Cause(err),
		)
	}
}

func describeState(state policy.State) string {
	return fmt.Sprintf("enabled=%t level=%s anonymize=%t", state.Enabled, state.Level, state.AnonymizePII)
}
