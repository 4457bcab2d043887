package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/samber/do/v2"
	"github.com/vreid/escrow/internal/pkg/escrow"
)

const publishTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type NotifierService struct {
	Publisher Publisher
	Logger    *log.Logger

	EventSource <-chan escrow.Event
	Channel     string

	done chan struct{}
}

func NewNotifierService(i do.Injector) (*NotifierService, error) {
	publisher := do.MustInvoke[Publisher](i)
	logger := do.MustInvoke[*log.Logger](i)
	eventSource := do.MustInvokeNamed[<-chan escrow.Event](i, "event-source")
	channel := do.MustInvokeNamed[string](i, "events-channel")

	return &NotifierService{
		Publisher: publisher,
		Logger:    logger,

		EventSource: eventSource,
		Channel:     channel,
	}, nil
}

func (s *NotifierService) Start() {
	s.done = make(chan struct{})

	go s.processEvents()
}

// Wait blocks until the event source is closed and drained.
func (s *NotifierService) Wait() {
	if s.done != nil {
		<-s.done
	}
}

func (s *NotifierService) HandleEvent(ctx context.Context, event escrow.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = s.Publisher.Publish(ctx, s.Channel, payload)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Kind, err)
	}

	return nil
}

func (s *NotifierService) processEvents() {
	defer close(s.done)

	for event := range s.EventSource {
		err := s.HandleEvent(context.Background(), event)
		if err != nil {
			s.Logger.Errorj(log.JSON{"msg": "event not published", "kind": event.Kind, "error": err.Error()})
		}
	}
}

// Shutdown releases the publisher's connection, if it holds one.
func (s *NotifierService) Shutdown() {
	if closer, ok := s.Publisher.(interface{ Shutdown() }); ok {
		closer.Shutdown()
	}
}
