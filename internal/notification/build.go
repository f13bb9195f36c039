package notification

import (
	"fmt"

	"github.com/signalwatch/trendalert-go/internal/conf"
	"github.com/signalwatch/trendalert-go/internal/logger"
)

// BuildRegistry constructs a channel registry from configuration. Unknown
// channel types are an error; a misconfigured channel fails startup rather
// than silently dropping notifications later.
func BuildRegistry(configs []conf.ChannelSettings, log logger.Logger) (*Registry, error) {
	registry := NewRegistry()

	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("channel with empty name in configuration")
		}

		var (
			ch  Channel
			err error
		)
		switch cfg.Type {
		case "shoutrrr":
			ch, err = NewShoutrrrChannel(cfg.Name, cfg.URL)
		case "webhook":
			ch = NewWebhookChannel(cfg.Name, cfg.URL)
		case "mqtt":
			ch = NewMQTTChannel(cfg.Name, cfg.Broker, cfg.Topic)
		case "log":
			ch = NewLogChannel(cfg.Name, log)
		default:
			err = fmt.Errorf("unknown channel type %q", cfg.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build channel %q: %w", cfg.Name, err)
		}

		if err := registry.Register(ch); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
