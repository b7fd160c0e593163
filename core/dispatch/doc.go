// Package dispatch implements the core logic for covering caregiving
// visits that lack a confirmed worker.
//
// It detects coverage gaps over the live schedule, ranks available workers
// by a composite suitability score, fans alert notifications out to a
// bounded candidate set over one or more channels, and resolves the race
// between concurrently responding workers to a single authoritative
// assignment.
//
// Key components:
//   - Manager: orchestrates detection, matching, notification fan-out and
//     audit/metrics recording.
//   - Notifier: one implementation per delivery channel (SMS, push, email),
//     each an isolated failure domain.
//   - Resolver: processes worker responses; the first valid acceptance wins
//     through an atomic conditional claim executed by the schedule store.
//
// Dispatch flow:
//  1. Detect gaps (critical first)
//  2. Rank candidates per gap
//  3. Notify the top of the ranking on every configured channel
//  4. Record notification state transitions
//  5. Resolve acceptances with the store-side claim guard
//
// All components are decoupled via interfaces; the travel cache, stores and
// channels are injected collaborators.
package dispatch
