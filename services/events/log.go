package eventsvc

import (
	"context"

	"github.com/trezcool/examhall/core"
)

// LogPublisher logs events at debug level; used when no broker is configured.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	p.logger.Debug("event "+topic, map[string]interface{}{"key": key, "payload": payload})
	return nil
}
