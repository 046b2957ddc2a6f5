package domain

import "time"

// Summary aggregates the results of one run. It is always rebuilt from the
// full result set.
type Summary struct {
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Fastest         *JobResult    `json:"fastest,omitempty"`
	Slowest         *JobResult    `json:"slowest,omitempty"`
	RunID           string        `json:"run_id"`
	Prompt          string        `json:"prompt,omitempty"`
	Results         []JobResult   `json:"results"`
	FailedResults   []JobResult   `json:"failed_results,omitempty"`
	Skipped         []string      `json:"skipped,omitempty"`
	TotalJobs       int           `json:"total_jobs"`
	SuccessfulJobs  int           `json:"successful_jobs"`
	FailedJobs      int           `json:"failed_jobs"`
	TimeoutJobs     int           `json:"timeout_jobs"`
	SkippedJobs     int           `json:"skipped_jobs"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
	AverageDuration time.Duration `json:"average_duration_ns"`
	// PerformanceFallback is set when no job succeeded and Fastest/Slowest
	// were computed over all results.
	PerformanceFallback bool `json:"performance_fallback,omitempty"`
	Cancelled           bool `json:"cancelled,omitempty"`
}

// SuccessRate returns the percentage of successful jobs, 0 when there are none.
func (s *Summary) SuccessRate() float64 {
	if s.TotalJobs == 0 {
		return 0
	}
	return float64(s.SuccessfulJobs) / float64(s.TotalJobs) * 100
}

// HasFailures reports whether any job failed or timed out.
func (s *Summary) HasFailures() bool {
	return s.FailedJobs > 0 || s.TimeoutJobs > 0
}

// WallTime is the elapsed time from the first start to the last end.
func (s *Summary) WallTime() time.Duration {
	if s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
