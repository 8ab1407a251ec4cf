package syncbridge

import (
	"context"
	"fmt"
	"sync"
)

// MockRowStore is an in-memory RowStore for testing the bridge without a
// network. FailNextCalls makes the next N calls fail transiently, to
// exercise the bridge's non-fatal error handling.
type MockRowStore struct {
	mu            sync.Mutex
	rows          map[string]map[string]map[string]interface{} // table -> id -> fields
	intake        []IntakeRow
	processed     map[string]string // row id -> result
	upsertCount   int
	failNextCalls int
}

// NewMockRowStore creates an empty mock store
func NewMockRowStore() *MockRowStore {
	return &MockRowStore{
		rows:      make(map[string]map[string]map[string]interface{}),
		processed: make(map[string]string),
	}
}

// UpsertRow stores the fields under table and id, last write winning
func (m *MockRowStore) UpsertRow(_ context.Context, table, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(); err != nil {
		return err
	}
	if m.rows[table] == nil {
		m.rows[table] = make(map[string]map[string]interface{})
	}
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	m.rows[table][id] = copied
	m.upsertCount++
	return nil
}

// ListIntakeRows returns queued intake rows with ids after the watermark
func (m *MockRowStore) ListIntakeRows(_ context.Context, afterID string) ([]IntakeRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(); err != nil {
		return nil, err
	}
	var rows []IntakeRow
	for _, row := range m.intake {
		if row.ID > afterID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// MarkIntakeProcessed records the reported outcome for assertions
func (m *MockRowStore) MarkIntakeProcessed(_ context.Context, rowID, result string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail(); err != nil {
		return err
	}
	m.processed[rowID] = result
	return nil
}

// QueueIntake adds a public order to the intake area
func (m *MockRowStore) QueueIntake(rows ...IntakeRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intake = append(m.intake, rows...)
}

// Row returns a published row's fields, or nil when absent
func (m *MockRowStore) Row(table, id string) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[table] == nil {
		return nil
	}
	return m.rows[table][id]
}

// ProcessedResult returns the outcome reported for an intake row
func (m *MockRowStore) ProcessedResult(rowID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed[rowID]
}

// UpsertCount returns how many rows have been written
func (m *MockRowStore) UpsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCount
}

// FailNextCalls makes the next n store calls return a transient error
func (m *MockRowStore) FailNextCalls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextCalls = n
}

func (m *MockRowStore) maybeFail() error {
	if m.failNextCalls > 0 {
		m.failNextCalls--
		return fmt.Errorf("mock store: transient failure")
	}
	return nil
}
