package notifier

import (
	"context"
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/samber/do/v2"
	"github.com/valkey-io/valkey-go"
)

// NewPublisher picks Valkey pub/sub when an address is configured and
// falls back to logging events otherwise.
func NewPublisher(i do.Injector) (Publisher, error) {
	address := do.MustInvokeNamed[string](i, "valkey-address")
	logger := do.MustInvoke[*log.Logger](i)

	if address == "" {
		return &LogPublisher{Logger: logger}, nil
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{address},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	return &ValkeyPublisher{Client: client}, nil
}

type ValkeyPublisher struct {
	Client valkey.Client
}

func (p *ValkeyPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	cmd := p.Client.B().Publish().Channel(channel).Message(valkey.BinaryString(payload)).Build()

	err := p.Client.Do(ctx, cmd).Error()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	return nil
}

func (p *ValkeyPublisher) Shutdown() {
	p.Client.Close()
}

type LogPublisher struct {
	Logger *log.Logger
}

func (p *LogPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.Logger.Infoj(log.JSON{"channel": channel, "event": string(payload)})

	return nil
}
