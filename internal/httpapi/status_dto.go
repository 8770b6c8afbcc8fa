package httpapi

import (
	"fmt"
	"time"

	"github.com/flexipay/fallback-engine/internal/circuitbreaker"
)

// statusReportDTO is the JSON shape served by GET /processors/status.
type statusReportDTO struct {
	Name                     string   `json:"name"`
	State                    string   `json:"state"`
	SuccessRate              float64  `json:"success_rate"`
	TotalCallsInWindow       int      `json:"total_calls_in_window"`
	SuccessfulCallsInWindow  int      `json:"successful_calls_in_window"`
	FailedCallsInWindow      int      `json:"failed_calls_in_window"`
	LastFailureAt            *string  `json:"last_failure_at"`
	CooldownRemainingSeconds *float64 `json:"cooldown_remaining_seconds"`
	FeeRate                  float64  `json:"fee_rate"`
}

func toStatusReportDTO(name string, report circuitbreaker.StatusReport, feeRate float64) statusReportDTO {
	dto := statusReportDTO{
		Name:                     name,
		State:                    report.State.String(),
		SuccessRate:              report.SuccessRate,
		TotalCallsInWindow:       report.TotalCallsInWindow,
		SuccessfulCallsInWindow:  report.SuccessfulCallsInWindow,
		FailedCallsInWindow:      report.FailedCallsInWindow,
		CooldownRemainingSeconds: report.CooldownRemainingSeconds,
		FeeRate:                  feeRate,
	}
	if report.LastFailureAt != nil {
		ago := renderAgo(time.Since(*report.LastFailureAt))
		dto.LastFailureAt = &ago
	}
	return dto
}

func renderAgo(d time.Duration) string {
	return fmt.Sprintf("%.1fs ago", d.Seconds())
}
