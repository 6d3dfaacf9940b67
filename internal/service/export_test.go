package service

import "time"

// SetClock replaces the lending service clock so tests can borrow in
// the past and observe overdue state without sleeping.
func SetClock(s *LendingService, now func() time.Time) { s.now = now }
