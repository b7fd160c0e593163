package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

// NotificationLog keeps dispatch notifications in memory for auditing and
// the operator dashboard.
type NotificationLog struct {
	mu    sync.RWMutex
	byID  map[string]model.Notification
	byGap map[string][]string
}

// NewNotificationLog returns an empty log.
func NewNotificationLog() *NotificationLog {
	return &NotificationLog{
		byID:  map[string]model.Notification{},
		byGap: map[string][]string{},
	}
}

// Append records a new notification.
func (l *NotificationLog) Append(_ context.Context, n model.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byID[n.ID]; exists {
		return fmt.Errorf("memstore: duplicate notification %s", n.ID)
	}
	l.byID[n.ID] = n
	l.byGap[n.GapID] = append(l.byGap[n.GapID], n.ID)
	return nil
}

// Update replaces the stored state of an existing notification.
func (l *NotificationLog) Update(_ context.Context, n model.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byID[n.ID]; !exists {
		return fmt.Errorf("memstore: unknown notification %s", n.ID)
	}
	l.byID[n.ID] = n
	return nil
}

// Get fetches a notification by id.
func (l *NotificationLog) Get(_ context.Context, id string) (model.Notification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.byID[id]
	if !ok {
		return model.Notification{}, fmt.Errorf("memstore: unknown notification %s", id)
	}
	return n, nil
}

// ByGap lists all notifications recorded for the gap, oldest first.
func (l *NotificationLog) ByGap(_ context.Context, gapID string) ([]model.Notification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.byGap[gapID]
	out := make([]model.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// PendingCount counts notifications not yet in a terminal state.
func (l *NotificationLog) PendingCount(context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for _, n := range l.byID {
		if !n.State.Terminal() {
			count++
		}
	}
	return count, nil
}

// RespondedSince lists notifications accepted or declined at or after the
// given time.
func (l *NotificationLog) RespondedSince(_ context.Context, since time.Time) ([]model.Notification, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []model.Notification
	for _, n := range l.byID {
		if n.State != model.NotifAccepted && n.State != model.NotifDeclined {
			continue
		}
		if n.RespondedAt.Before(since) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
