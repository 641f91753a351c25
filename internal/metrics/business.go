package metrics

import "time"

// IncrementCommentIngested increments the ingestion counter for an outcome
// (created, exists, skipped, forbidden)
func (m *Metrics) IncrementCommentIngested(status string) {
	m.safeExecute("IncrementCommentIngested", func() {
		m.CommentsIngestedTotal.WithLabelValues(status).Inc()
	})
}

// IncrementClassification increments the completed-classification counter
func (m *Metrics) IncrementClassification(category string) {
	m.safeExecute("IncrementClassification", func() {
		m.ClassificationsTotal.WithLabelValues(category).Inc()
	})
}

// IncrementAnswerGenerated increments the answer counter
func (m *Metrics) IncrementAnswerGenerated() {
	m.safeExecute("IncrementAnswerGenerated", func() {
		m.AnswersGeneratedTotal.Inc()
	})
}

// IncrementReplySent increments the sent-reply counter
func (m *Metrics) IncrementReplySent() {
	m.safeExecute("IncrementReplySent", func() {
		m.RepliesSentTotal.Inc()
	})
}

// IncrementReplyRateLimited increments the rate-limited dispatch counter
func (m *Metrics) IncrementReplyRateLimited() {
	m.safeExecute("IncrementReplyRateLimited", func() {
		m.RepliesRateLimitedTotal.Inc()
	})
}

// AddCommentsDeleted adds the affected-row count of a cascading delete
func (m *Metrics) AddCommentsDeleted(count int) {
	m.safeExecute("AddCommentsDeleted", func() {
		m.CommentsDeletedTotal.Add(float64(count))
	})
}

// IncrementTaskRetry increments the redelivery counter for a task
func (m *Metrics) IncrementTaskRetry(task string) {
	m.safeExecute("IncrementTaskRetry", func() {
		m.TaskRetriesTotal.WithLabelValues(task).Inc()
	})
}

// RecordTaskDuration records a worker task execution
func (m *Metrics) RecordTaskDuration(task, status string, duration time.Duration) {
	m.safeExecute("RecordTaskDuration", func() {
		m.TaskDuration.WithLabelValues(task, status).Observe(duration.Seconds())
	})
}
