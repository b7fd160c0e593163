package metrics

import coremetrics "github.com/serenity-care/dispatch/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordNotifications forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordNotifications(recs []coremetrics.NotificationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordNotifications(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordGapCount forwards the gap count when supported by the sink.
func (m *MultiSink) RecordGapCount(active int) error {
	for _, s := range m.Sinks {
		if gr, ok := s.(coremetrics.GapRecorder); ok {
			if err := gr.RecordGapCount(active); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordClaim forwards claim resolutions when supported by the sink.
func (m *MultiSink) RecordClaim(rec coremetrics.ClaimRecord) error {
	for _, s := range m.Sinks {
		if cr, ok := s.(coremetrics.ClaimRecorder); ok {
			if err := cr.RecordClaim(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPending forwards the pending gauge when supported by the sink.
func (m *MultiSink) RecordPending(count int) error {
	for _, s := range m.Sinks {
		if pr, ok := s.(coremetrics.PendingRecorder); ok {
			if err := pr.RecordPending(count); err != nil {
				return err
			}
		}
	}
	return nil
}
