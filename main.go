package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/samber/do/v2"
	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/escrow"
	"github.com/vreid/escrow/internal/pkg/ledger"
	"github.com/vreid/escrow/internal/pkg/notifier"

	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

type EscrowApp struct {
	Logger *glog.Logger `do:""`

	DatabaseService *common.DatabaseService `do:""`
	EchoService     *common.EchoService     `do:""`

	LedgerService   *ledger.LedgerService     `do:""`
	EscrowService   *escrow.EscrowService     `do:""`
	NotifierService *notifier.NotifierService `do:""`
}

//nolint:funlen
func runServer(ctx context.Context, cmd *cli.Command) error {
	i := do.New()

	do.ProvideNamedValue(i, "port", cmd.Int("port"))
	do.ProvideNamedValue(i, "data-dir", cmd.String("data-dir"))
	do.ProvideNamedValue(i, "log-level", cmd.String("log-level"))

	do.ProvideNamedValue(i, "signature-secret", cmd.String("signature-secret"))
	do.ProvideNamedValue(i, "valkey-address", cmd.String("valkey-address"))
	do.ProvideNamedValue(i, "events-channel", cmd.String("events-channel"))

	eventChan := make(chan escrow.Event, cmd.Int("event-buffer"))
	var eventSource <-chan escrow.Event = eventChan
	var eventSink chan<- escrow.Event = eventChan

	do.ProvideNamedValue(i, "event-source", eventSource)
	do.ProvideNamedValue(i, "event-sink", eventSink)

	do.Provide(i, common.NewLogger)
	do.Provide(i, common.NewDatabaseService)
	do.Provide(i, common.NewEchoService)

	do.Provide(i, notifier.NewPublisher)
	do.Provide(i, notifier.NewNotifierService)

	do.Provide(i, ledger.NewLedgerService)
	do.Provide(i, escrow.NewEscrowService)

	do.Provide(i, do.InvokeStruct[EscrowApp])

	app, err := do.Invoke[EscrowApp](i)
	if err != nil {
		return fmt.Errorf("failed to create escrow app: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx, eventChan)
}

// Serve runs the HTTP API until ctx is done. eventChan is closed only after
// the server has drained its handlers.
func (app *EscrowApp) Serve(ctx context.Context, eventChan chan escrow.Event) error {
	app.NotifierService.Start()

	err := app.EchoService.Run(ctx, shutdownTimeout)
	if err != nil {
		// handlers may still be emitting, so the channel stays open
		app.Logger.Errorj(glog.JSON{"msg": "server stopped uncleanly", "error": err.Error()})

		_ = app.DatabaseService.Shutdown()

		return err
	}

	close(eventChan)
	app.NotifierService.Wait()
	app.NotifierService.Shutdown()

	err = app.DatabaseService.Shutdown()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

func main() {
	//nolint:exhaustruct
	cmd := &cli.Command{
		Name:  "escrow",
		Usage: "battle escrow settlement service",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "run the escrow HTTP API",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Value:   3000, //nolint:mnd
						Sources: cli.EnvVars("ESCROW_PORT"),
					},
					&cli.StringFlag{
						Name:    "data-dir",
						Value:   "./escrow/data",
						Sources: cli.EnvVars("ESCROW_DATA_DIR"),
					},
					&cli.StringFlag{
						Name:    "log-level",
						Value:   "info",
						Sources: cli.EnvVars("ESCROW_LOG_LEVEL"),
					},
					&cli.StringFlag{
						Name:    "signature-secret",
						Value:   "secret",
						Sources: cli.EnvVars("ESCROW_SIGNATURE_SECRET"),
					},
					&cli.StringFlag{
						Name:    "valkey-address",
						Value:   "",
						Sources: cli.EnvVars("ESCROW_VALKEY_ADDRESS"),
					},
					&cli.StringFlag{
						Name:    "events-channel",
						Value:   "escrow:events",
						Sources: cli.EnvVars("ESCROW_EVENTS_CHANNEL"),
					},
					&cli.IntFlag{
						Name:    "event-buffer",
						Value:   1000, //nolint:mnd
						Sources: cli.EnvVars("ESCROW_EVENT_BUFFER"),
					},
				},
				Action: runServer,
			},
			clientCommand(),
		},
		DefaultCommand: "server",
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
