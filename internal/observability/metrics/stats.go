package metrics

import "sync/atomic"

// DispatchStats tracks outbound send outcomes for the dashboard. The
// Prometheus counters above cover scraping; this keeps a readable
// in-process snapshot.
type DispatchStats struct {
	success atomic.Int64
	failure atomic.Int64
}

func (s *DispatchStats) RecordSuccess() {
	if s == nil {
		return
	}
	s.success.Add(1)
}

func (s *DispatchStats) RecordFailure() {
	if s == nil {
		return
	}
	s.failure.Add(1)
}

// Snapshot returns delivered and failed send counts and the success
// rate over all attempts. Rate is 1 when nothing has been attempted.
func (s *DispatchStats) Snapshot() (success, failure int64, rate float64) {
	if s == nil {
		return 0, 0, 1
	}
	success = s.success.Load()
	failure = s.failure.Load()
	total := success + failure
	if total == 0 {
		return success, failure, 1
	}
	return success, failure, float64(success) / float64(total)
}
