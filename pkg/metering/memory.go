package metering

import (
	"context"
	"sync"
)

// InMemoryMeter is a process-local Meter for single-instance/dev
// deployments backed by the sqlite dialect, where PostgresMeter's
// Postgres-specific schema (BIGSERIAL, JSONB) does not apply. It keeps the
// same event-list-plus-aggregate shape the package's own test double
// already uses.
type InMemoryMeter struct {
	mu     sync.Mutex
	events []Event
}

// NewInMemoryMeter builds an empty InMemoryMeter.
func NewInMemoryMeter() *InMemoryMeter {
	return &InMemoryMeter{}
}

func (m *InMemoryMeter) Record(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *InMemoryMeter) RecordBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *InMemoryMeter) GetUsage(ctx context.Context, tenantID string, period Period) (*Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	usage := &Usage{TenantID: tenantID, Period: period, Totals: make(map[EventType]int64)}
	for _, e := range m.events {
		if e.TenantID != tenantID || e.Timestamp.Before(period.Start) || !e.Timestamp.Before(period.End) {
			continue
		}
		usage.Totals[e.EventType] += e.Quantity
		if e.Timestamp.After(usage.LastUpdate) {
			usage.LastUpdate = e.Timestamp
		}
	}
	return usage, nil
}

func (m *InMemoryMeter) GetUsageByType(ctx context.Context, tenantID string, eventType EventType, period Period) (int64, error) {
	usage, err := m.GetUsage(ctx, tenantID, period)
	if err != nil {
		return 0, err
	}
	return usage.Totals[eventType], nil
}
