package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/serenity-care/dispatch/core/dispatch"
)

// MockChannel is a simple channel used in tests.
type MockChannel struct {
	Messages    []dispatch.Message
	FailWorkers map[string]bool
	mu          sync.Mutex
}

// NewMockChannel creates a new MockChannel.
func NewMockChannel() *MockChannel {
	return &MockChannel{FailWorkers: make(map[string]bool)}
}

// Send records the message or returns an error if configured to fail.
func (m *MockChannel) Send(_ context.Context, msg dispatch.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWorkers[msg.WorkerID] {
		return fmt.Errorf("send failed")
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MockChannel) Sent() []dispatch.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]dispatch.Message, len(m.Messages))
	copy(out, m.Messages)
	return out
}
