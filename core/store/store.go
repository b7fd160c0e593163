// Package store declares the narrow contracts between the dispatch engine
// and the external schedule, roster and location subsystems. The engine
// never reaches past these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/serenity-care/dispatch/core/model"
)

// ErrNotFound marks a lookup whose subject is simply absent, as opposed to
// a store failure. Callers branch on it with errors.Is.
var ErrNotFound = errors.New("not found")

// ScheduleStore exposes visit reads and the single conditional write the
// engine is allowed to perform.
type ScheduleStore interface {
	// VisitsInRange lists visits for the organization whose scheduled start
	// falls within [from, to).
	VisitsInRange(ctx context.Context, orgID string, from, to time.Time) ([]model.Visit, error)

	// Visit fetches a single visit by id.
	Visit(ctx context.Context, visitID string) (model.Visit, error)

	// ClaimVisit atomically assigns the worker to the visit if and only if
	// the current assignee still equals prevWorkerID and no check-in has
	// been recorded. prevWorkerID is empty when claiming an unassigned
	// visit, or the absent worker's id when replacing a no-show. The guard
	// executes in the store's write path so it holds across engine
	// instances. It returns false, with no side effects, when the visit
	// was already claimed or otherwise resolved.
	ClaimVisit(ctx context.Context, visitID, workerID, prevWorkerID string) (bool, error)
}

// RosterStore exposes worker reads from the external HR subsystem.
type RosterStore interface {
	ActiveWorkers(ctx context.Context, orgID string) ([]model.Worker, error)

	// WeeklyHours returns the committed hours for the week containing weekOf.
	WeeklyHours(ctx context.Context, workerID string, weekOf time.Time) (float64, error)

	// LastShiftEnd returns the end of the worker's most recent shift ending
	// before the given time. ok is false when no prior shift is known.
	LastShiftEnd(ctx context.Context, workerID string, before time.Time) (end time.Time, ok bool, err error)

	// OverlappingCommitment reports whether the worker is already committed
	// to a visit intersecting [start, end).
	OverlappingCommitment(ctx context.Context, workerID string, start, end time.Time) (bool, error)
}

// LocationStore holds last known geocoded positions. Implementations must
// invalidate the travel cache synchronously on Put.
type LocationStore interface {
	Get(ctx context.Context, ref model.SubjectRef) (model.Location, error)
	Put(ctx context.Context, loc model.Location) error
}

// NotificationLog records outbound dispatch notifications and their state
// transitions for auditing and the operator dashboard.
type NotificationLog interface {
	Append(ctx context.Context, n model.Notification) error
	Update(ctx context.Context, n model.Notification) error
	Get(ctx context.Context, id string) (model.Notification, error)
	ByGap(ctx context.Context, gapID string) ([]model.Notification, error)

	// PendingCount counts notifications not yet in a terminal state.
	PendingCount(ctx context.Context) (int, error)

	// RespondedSince returns notifications that reached accepted or declined
	// at or after the given time.
	RespondedSince(ctx context.Context, since time.Time) ([]model.Notification, error)
}
