package metric

import (
	"time"
)

type nopMetrics struct{}

func NewNop() Metrics {
	return &nopMetrics{}
}
func (m *nopMetrics) IncInvocationsTotal()                        {}
func (m *nopMetrics) IncAttemptsTotal(_ Event)                    {}
func (m *nopMetrics) IncRetriesTotal()                            {}
func (m *nopMetrics) IncDeniedTotal()                             {}
func (m *nopMetrics) IncAuthFailuresTotal()                       {}
func (m *nopMetrics) UpdateAttemptDuration(_ string, _ time.Time) {}
