package biz

import (
	"context"
	"sync"
	"time"

	"github.com/guardpost/guardpost/internal/intercept"
	"github.com/guardpost/guardpost/internal/policy"
)

// ServiceEventLog is the service identifier of the event log reader.
const ServiceEventLog = "eventlog"

// EventRecord is one event returned by the event log service.
type EventRecord struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// EventLogService is the business resolver for the event log. Even though
// the interceptor already checked the request, the resolver re-checks the
// evaluator itself: the two checks are independent layers, and the resolver
// must not assume the outer one ran.
type EventLogService struct {
	evaluator *policy.Evaluator

	mu      sync.Mutex
	records []EventRecord
}

// NewEventLogService creates the event log resolver. The evaluator is a
// mandatory dependency; there is no unchecked mode.
func NewEventLogService(evaluator *policy.Evaluator) *EventLogService {
	if evaluator == nil {
		panic("biz: NewEventLogService requires a non-nil evaluator")
	}

	return &EventLogService{evaluator: evaluator}
}

// Query returns the stored events, newest last.
func (s *EventLogService) Query(ctx context.Context) ([]EventRecord, error) {
	decision := s.evaluator.Evaluate(ServiceEventLog, policy.OpRead)
	if !decision.Allowed {
		return nil, &intercept.DeniedError{Code: decision.Code}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]EventRecord, len(s.records))
	copy(records, s.records)

	return records, nil
}

// Append stores one event.
func (s *EventLogService) Append(ctx context.Context, record EventRecord) error {
	decision := s.evaluator.Evaluate(ServiceEventLog, policy.OpWrite)
	if !decision.Allowed {
		return &intercept.DeniedError{Code: decision.Code}
	}

	if record.Time.IsZero() {
		record.Time = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)

	return nil
}
