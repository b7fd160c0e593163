package model

import (
	"fmt"
	"time"
)

// Channel is a delivery method for dispatch alerts.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

// NotificationState tracks one outbound attempt through its lifecycle:
// pending -> sent -> {delivered, failed} -> {accepted, declined, expired}.
type NotificationState string

const (
	NotifPending   NotificationState = "pending"
	NotifSent      NotificationState = "sent"
	NotifDelivered NotificationState = "delivered"
	NotifFailed    NotificationState = "failed"
	NotifAccepted  NotificationState = "accepted"
	NotifDeclined  NotificationState = "declined"
	NotifExpired   NotificationState = "expired"
)

// Terminal reports whether the state admits no further transitions.
func (s NotificationState) Terminal() bool {
	switch s {
	case NotifAccepted, NotifDeclined, NotifExpired, NotifFailed:
		return true
	}
	return false
}

var notifTransitions = map[NotificationState][]NotificationState{
	NotifPending:   {NotifSent, NotifFailed},
	NotifSent:      {NotifDelivered, NotifFailed, NotifAccepted, NotifDeclined, NotifExpired},
	NotifDelivered: {NotifAccepted, NotifDeclined, NotifExpired},
}

// Notification records one outbound attempt to one candidate for one gap
// via one channel.
type Notification struct {
	ID          string
	GapID       string
	VisitID     string
	WorkerID    string
	Channel     Channel
	State       NotificationState
	CreatedAt   time.Time
	RespondedAt time.Time
	LastError   string

	// ReplacesWorkerID names the assignee this offer would take over from,
	// pinned when the gap was detected. Empty for unassigned gaps.
	ReplacesWorkerID string
}

// Transition moves the notification to the next state, rejecting illegal
// moves and any mutation of a terminal state.
func (n *Notification) Transition(next NotificationState, at time.Time) error {
	if n.State.Terminal() {
		return fmt.Errorf("notification %s is terminal (%s)", n.ID, n.State)
	}
	for _, allowed := range notifTransitions[n.State] {
		if allowed == next {
			n.State = next
			if next.Terminal() || next == NotifDelivered {
				n.RespondedAt = at
			}
			return nil
		}
	}
	return fmt.Errorf("notification %s: illegal transition %s -> %s", n.ID, n.State, next)
}

// ResponseLatency returns the time between creation and the terminal
// response, or zero if no response was recorded.
func (n Notification) ResponseLatency() time.Duration {
	if n.RespondedAt.IsZero() {
		return 0
	}
	return n.RespondedAt.Sub(n.CreatedAt)
}
