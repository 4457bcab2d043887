package main

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/escrow/internal/pkg/client"
	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/escrow"
	"github.com/vreid/escrow/internal/pkg/ledger"
	"github.com/vreid/escrow/internal/pkg/notifier"
	bolt "go.etcd.io/bbolt"
)

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []escrow.EventKind
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload []byte) error {
	var event escrow.Event

	err := json.Unmarshal(payload, &event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.kinds = append(p.kinds, event.Kind)

	return nil
}

func TestServeDrainsInFlightRequests(t *testing.T) {
	t.Parallel()

	databaseService, err := common.OpenDatabase(t.TempDir())
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := common.NewLoggerWithLevel("main-test", "off")
	events := make(chan escrow.Event, 8)
	publisher := &recordingPublisher{}

	escrowService := &escrow.EscrowService{
		DatabaseService: databaseService,
		Logger:          logger,
		Derive:          ledger.DeriveAddress,
		SignatureSecret: "secret",
	}

	err = databaseService.DB.Update(func(tx *bolt.Tx) error {
		book, err := ledger.NewBook(tx)
		if err != nil {
			return err
		}

		err = book.RegisterUnit(ledger.Unit{ID: "STAKE", Authority: "minter"})
		if err != nil {
			return err
		}

		_, err = book.Mint("minter", "STAKE", "alice", 1000)

		return err
	})
	require.NoError(t, err)

	_, err = escrowService.Initialize("admin", escrow.InitializeRequest{ValueUnit: "STAKE", FeeBps: 500, Price: 100})
	require.NoError(t, err)

	// the first post-commit emit blocks until released
	entered := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once

	escrowService.EventSink = events
	escrowService.Now = func() time.Time {
		once.Do(func() {
			close(entered)
			<-release
		})

		return time.Unix(1_700_000_000, 0)
	}

	echoService := common.NewEchoServiceWithListener(logger, listener)
	echoService.Register(escrowService.Routes)

	app := &EscrowApp{
		Logger:          logger,
		DatabaseService: databaseService,
		EchoService:     echoService,
		EscrowService:   escrowService,
		NotifierService: &notifier.NotifierService{
			Publisher:   publisher,
			Logger:      logger,
			EventSource: events,
			Channel:     "escrow:events",
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan struct{})

	var serveErr error

	go func() {
		defer close(served)

		serveErr = app.Serve(ctx, events)
	}()

	type createResult struct {
		battle escrow.Battle
		err    error
	}

	created := make(chan createResult, 1)

	go func() {
		battle, err := client.New("http://"+listener.Addr().String(), "alice").Create(context.Background(), 1)
		created <- createResult{battle: battle, err: err}
	}()

	<-entered
	cancel()

	assert.Never(t, func() bool {
		select {
		case <-served:
			return true
		default:
			return false
		}
	}, 200*time.Millisecond, 10*time.Millisecond)

	close(release)

	result := <-created
	require.NoError(t, result.err)
	assert.Equal(t, escrow.StatusPending, result.battle.Status)

	<-served
	require.NoError(t, serveErr)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	assert.Equal(t, []escrow.EventKind{escrow.EventBattleCreated}, publisher.kinds)
}
