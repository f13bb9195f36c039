package notification

import (
	"context"
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/signalwatch/trendalert-go/internal/errors"
)

// ShoutrrrChannel delivers through any service shoutrrr supports (email,
// Slack, Telegram, Discord, ntfy, ...), selected by the service URL.
type ShoutrrrChannel struct {
	name   string
	sender *router.ServiceRouter
}

// NewShoutrrrChannel creates a channel from a shoutrrr service URL.
func NewShoutrrrChannel(name, serviceURL string) (*ShoutrrrChannel, error) {
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create shoutrrr sender for channel %q: %w", name, err)
	}
	return &ShoutrrrChannel{name: name, sender: sender}, nil
}

// Name implements Channel.
func (c *ShoutrrrChannel) Name() string {
	return c.name
}

// Send implements Channel. The shoutrrr router is synchronous; the send is
// run in a goroutine so ctx cancellation is honored.
func (c *ShoutrrrChannel) Send(ctx context.Context, content Content) error {
	params := types.Params{"title": content.Title}

	done := make(chan error, 1)
	go func() {
		errs := c.sender.Send(content.Body, &params)
		var joined error
		for _, err := range errs {
			if err != nil {
				joined = errors.Join(joined, err)
			}
		}
		done <- joined
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("shoutrrr send on channel %q: %w", c.name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shoutrrr send on channel %q: %w", c.name, ctx.Err())
	}
}
