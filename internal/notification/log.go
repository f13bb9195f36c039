package notification

import (
	"context"

	"github.com/signalwatch/trendalert-go/internal/logger"
)

// LogChannel writes notifications to the structured log. It always succeeds
// and is the default channel when nothing else is configured.
type LogChannel struct {
	name string
	log  logger.Logger
}

// NewLogChannel creates a log channel.
func NewLogChannel(name string, log logger.Logger) *LogChannel {
	return &LogChannel{name: name, log: log}
}

// Name implements Channel.
func (c *LogChannel) Name() string {
	return c.name
}

// Send implements Channel.
func (c *LogChannel) Send(_ context.Context, content Content) error {
	c.log.Info("notification",
		logger.String("channel", c.name),
		logger.String("title", content.Title),
		logger.String("body", content.Body),
		logger.String("priority", content.Priority))
	return nil
}
