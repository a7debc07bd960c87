package core

import "context"

// Event topics
const (
	TopicPaymentSubmitted   = "payment.submitted"
	TopicPaymentReviewed    = "payment.reviewed"
	TopicAnswerSheetStarted = "answersheet.started"
	TopicAnswerCreated      = "answer.created"
)

// EventPublisher is any service that can broadcast domain events.
// Publishing is best effort: callers log failures but never fail the operation because of them.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}
