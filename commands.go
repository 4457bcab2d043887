package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/urfave/cli/v3"
	"github.com/vreid/escrow/internal/pkg/client"
	"github.com/vreid/escrow/internal/pkg/escrow"
	"github.com/vreid/escrow/internal/pkg/ledger"
)

var ErrFlagOutOfRange = errors.New("flag value out of range")

func clientFlags(flags ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Value:   "http://localhost:3000",
			Sources: cli.EnvVars("ESCROW_URL"),
		},
		&cli.StringFlag{
			Name:     "caller",
			Usage:    "identity sent in the caller header",
			Required: true,
			Sources:  cli.EnvVars("ESCROW_CALLER"),
		},
	}, flags...)
}

func battleFlags(flags ...cli.Flag) []cli.Flag {
	return clientFlags(append([]cli.Flag{
		&cli.StringFlag{Name: "player-one", Required: true},
		&cli.Uint64Flag{Name: "battle-id", Required: true},
	}, flags...)...)
}

func newClient(cmd *cli.Command) *client.Client {
	return client.New(cmd.String("url"), ledger.Identity(cmd.String("caller")))
}

func printJSON(cmd *cli.Command, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	_, err = fmt.Fprintln(cmd.Root().Writer, string(data))

	//nolint:wrapcheck
	return err
}

func uint8Flag(cmd *cli.Command, name string) (uint8, error) {
	value := cmd.Uint(name)
	if value > math.MaxUint8 {
		return 0, fmt.Errorf("%w: --%s %d", ErrFlagOutOfRange, name, value)
	}

	return uint8(value), nil
}

// action adapts a client call that returns a printable value.
func action[T any](call func(ctx context.Context, cmd *cli.Command, c *client.Client) (T, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		result, err := call(ctx, cmd, newClient(cmd))
		if err != nil {
			return err
		}

		return printJSON(cmd, result)
	}
}

//nolint:funlen
func clientCommand() *cli.Command {
	//nolint:exhaustruct
	return &cli.Command{
		Name:  "client",
		Usage: "call a running escrow server",
		Commands: []*cli.Command{
			{
				Name:  "register-unit",
				Flags: clientFlags(&cli.StringFlag{Name: "unit", Required: true}, &cli.UintFlag{Name: "decimals"}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (ledger.Unit, error) {
					decimals, err := uint8Flag(cmd, "decimals")
					if err != nil {
						return ledger.Unit{}, err
					}

					return c.RegisterUnit(ctx, ledger.RegisterUnitRequest{
						ID:       ledger.UnitID(cmd.String("unit")),
						Decimals: decimals,
					})
				}),
			},
			{
				Name: "mint",
				Flags: clientFlags(
					&cli.StringFlag{Name: "unit", Required: true},
					&cli.StringFlag{Name: "owner", Required: true},
					&cli.Uint64Flag{Name: "amount", Required: true},
				),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (ledger.BalanceResponse, error) {
					return c.Mint(ctx, ledger.UnitID(cmd.String("unit")), ledger.MintRequest{
						Owner:  ledger.Identity(cmd.String("owner")),
						Amount: cmd.Uint64("amount"),
					})
				}),
			},
			{
				Name:  "balance",
				Flags: clientFlags(&cli.StringFlag{Name: "unit", Required: true}, &cli.StringFlag{Name: "owner", Required: true}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (ledger.BalanceResponse, error) {
					return c.Balance(ctx, ledger.UnitID(cmd.String("unit")), ledger.Identity(cmd.String("owner")))
				}),
			},
			{
				Name: "initialize",
				Flags: clientFlags(
					&cli.StringFlag{Name: "unit", Required: true},
					&cli.Uint64Flag{Name: "fee-bps"},
					&cli.Uint64Flag{Name: "price", Required: true},
				),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Config, error) {
					return c.Initialize(ctx, escrow.InitializeRequest{
						ValueUnit: ledger.UnitID(cmd.String("unit")),
						FeeBps:    cmd.Uint64("fee-bps"),
						Price:     cmd.Uint64("price"),
					})
				}),
			},
			{
				Name:  "config",
				Flags: clientFlags(),
				Action: action(func(ctx context.Context, _ *cli.Command, c *client.Client) (escrow.ConfigView, error) {
					return c.Config(ctx)
				}),
			},
			{
				Name:  "set-fee-bps",
				Flags: clientFlags(&cli.Uint64Flag{Name: "fee-bps", Required: true}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Config, error) {
					return c.UpdateFeeBps(ctx, cmd.Uint64("fee-bps"))
				}),
			},
			{
				Name:  "set-stake-price",
				Flags: clientFlags(&cli.Uint64Flag{Name: "price", Required: true}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Config, error) {
					return c.UpdateStakePrice(ctx, cmd.Uint64("price"))
				}),
			},
			{
				Name:  "set-value-unit",
				Flags: clientFlags(&cli.StringFlag{Name: "unit", Required: true}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Config, error) {
					return c.UpdateValueUnit(ctx, ledger.UnitID(cmd.String("unit")))
				}),
			},
			{
				Name:  "create",
				Flags: clientFlags(&cli.Uint64Flag{Name: "battle-id", Required: true}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Battle, error) {
					return c.Create(ctx, cmd.Uint64("battle-id"))
				}),
			},
			{
				Name:  "battle",
				Flags: battleFlags(),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Battle, error) {
					return c.Battle(ctx, ledger.Identity(cmd.String("player-one")), cmd.Uint64("battle-id"))
				}),
			},
			{
				Name:  "join",
				Flags: battleFlags(),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Battle, error) {
					return c.Join(ctx, ledger.Identity(cmd.String("player-one")), cmd.Uint64("battle-id"))
				}),
			},
			{
				Name:  "result",
				Usage: "report a win: 0 for player one, 1 for player two",
				Flags: battleFlags(&cli.UintFlag{Name: "result"}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Outcome, error) {
					result, err := uint8Flag(cmd, "result")
					if err != nil {
						return escrow.Outcome{}, err
					}

					return c.RecordResult(ctx, ledger.Identity(cmd.String("player-one")), cmd.Uint64("battle-id"),
						escrow.Result(result))
				}),
			},
			{
				Name:  "withdraw",
				Flags: battleFlags(),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Outcome, error) {
					return c.Withdraw(ctx, ledger.Identity(cmd.String("player-one")), cmd.Uint64("battle-id"))
				}),
			},
			{
				Name:  "admin-withdraw",
				Flags: battleFlags(&cli.StringFlag{Name: "player-two", Required: true}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Outcome, error) {
					return c.AdminWithdraw(ctx, ledger.Identity(cmd.String("player-one")), cmd.Uint64("battle-id"),
						ledger.Identity(cmd.String("player-two")))
				}),
			},
			{
				Name:  "receipt",
				Flags: clientFlags(&cli.StringFlag{Name: "id", Required: true}),
				Action: action(func(ctx context.Context, cmd *cli.Command, c *client.Client) (escrow.Receipt, error) {
					return c.Receipt(ctx, cmd.String("id"))
				}),
			},
		},
	}
}
