package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/escrow"
	"github.com/vreid/escrow/internal/pkg/ledger"
)

const requestTimeout = 30 * time.Second

var ErrUnexpectedResponse = errors.New("unexpected response")

// Client calls the escrow HTTP API on behalf of one caller identity.
type Client struct {
	http *resty.Client
}

func New(baseURL string, caller ledger.Identity) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader(common.CallerHeader, string(caller))

	return &Client{http: httpClient}
}

func (c *Client) Initialize(ctx context.Context, request escrow.InitializeRequest) (escrow.Config, error) {
	var config escrow.Config

	err := c.do(ctx, http.MethodPost, "/api/escrow/config", request, &config)

	return config, err
}

func (c *Client) Config(ctx context.Context) (escrow.ConfigView, error) {
	var config escrow.ConfigView

	err := c.do(ctx, http.MethodGet, "/api/escrow/config", nil, &config)

	return config, err
}

func (c *Client) UpdateFeeBps(ctx context.Context, feeBps uint64) (escrow.Config, error) {
	var config escrow.Config

	err := c.do(ctx, http.MethodPut, "/api/escrow/config/fee-bps", escrow.FeeBpsRequest{FeeBps: feeBps}, &config)

	return config, err
}

func (c *Client) UpdateStakePrice(ctx context.Context, price uint64) (escrow.Config, error) {
	var config escrow.Config

	err := c.do(ctx, http.MethodPut, "/api/escrow/config/stake-price", escrow.StakePriceRequest{Price: price}, &config)

	return config, err
}

func (c *Client) UpdateValueUnit(ctx context.Context, unit ledger.UnitID) (escrow.Config, error) {
	var config escrow.Config

	err := c.do(ctx, http.MethodPut, "/api/escrow/config/value-unit", escrow.ValueUnitRequest{ValueUnit: unit}, &config)

	return config, err
}

func (c *Client) Create(ctx context.Context, battleID uint64) (escrow.Battle, error) {
	var battle escrow.Battle

	err := c.do(ctx, http.MethodPost, "/api/escrow/battles", escrow.CreateBattleRequest{BattleID: battleID}, &battle)

	return battle, err
}

func (c *Client) Battle(ctx context.Context, playerOne ledger.Identity, battleID uint64) (escrow.Battle, error) {
	var battle escrow.Battle

	err := c.do(ctx, http.MethodGet, battlePath(playerOne, battleID, ""), nil, &battle)

	return battle, err
}

func (c *Client) Join(ctx context.Context, playerOne ledger.Identity, battleID uint64) (escrow.Battle, error) {
	var battle escrow.Battle

	err := c.do(ctx, http.MethodPost, battlePath(playerOne, battleID, "join"), nil, &battle)

	return battle, err
}

func (c *Client) RecordResult(
	ctx context.Context,
	playerOne ledger.Identity,
	battleID uint64,
	result escrow.Result,
) (escrow.Outcome, error) {
	var outcome escrow.Outcome

	err := c.do(ctx, http.MethodPost, battlePath(playerOne, battleID, "result"),
		escrow.ResultRequest{Result: int64(result)}, &outcome)

	return outcome, err
}

func (c *Client) Withdraw(ctx context.Context, playerOne ledger.Identity, battleID uint64) (escrow.Outcome, error) {
	var outcome escrow.Outcome

	err := c.do(ctx, http.MethodPost, battlePath(playerOne, battleID, "withdraw"), nil, &outcome)

	return outcome, err
}

func (c *Client) AdminWithdraw(
	ctx context.Context,
	playerOne ledger.Identity,
	battleID uint64,
	playerTwo ledger.Identity,
) (escrow.Outcome, error) {
	var outcome escrow.Outcome

	err := c.do(ctx, http.MethodPost, battlePath(playerOne, battleID, "admin-withdraw"),
		escrow.AdminWithdrawRequest{PlayerTwo: playerTwo}, &outcome)

	return outcome, err
}

func (c *Client) Receipt(ctx context.Context, id string) (escrow.Receipt, error) {
	var receipt escrow.Receipt

	err := c.do(ctx, http.MethodGet, "/api/escrow/receipts/"+id, nil, &receipt)

	return receipt, err
}

func (c *Client) RegisterUnit(ctx context.Context, request ledger.RegisterUnitRequest) (ledger.Unit, error) {
	var unit ledger.Unit

	err := c.do(ctx, http.MethodPost, "/api/ledger/units", request, &unit)

	return unit, err
}

func (c *Client) Mint(ctx context.Context, unit ledger.UnitID, request ledger.MintRequest) (ledger.BalanceResponse, error) {
	var balance ledger.BalanceResponse

	err := c.do(ctx, http.MethodPost, "/api/ledger/units/"+string(unit)+"/mint", request, &balance)

	return balance, err
}

func (c *Client) Balance(ctx context.Context, unit ledger.UnitID, owner ledger.Identity) (ledger.BalanceResponse, error) {
	var balance ledger.BalanceResponse

	err := c.do(ctx, http.MethodGet, "/api/ledger/units/"+string(unit)+"/balances/"+string(owner), nil, &balance)

	return balance, err
}

func (c *Client) do(ctx context.Context, method string, path string, body any, result any) error {
	request := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&escrow.ErrorResponse{})

	if body != nil {
		request.SetBody(body)
	}

	response, err := request.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}

	if !response.IsError() {
		return nil
	}

	errorResponse, ok := response.Error().(*escrow.ErrorResponse)
	if !ok {
		return fmt.Errorf("%w: %s %s: %s", ErrUnexpectedResponse, method, path, response.Status())
	}

	if errorResponse.Kind != "" {
		return errorResponse
	}

	// ledger and transport errors carry only a message
	return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedResponse, method, path,
		response.StatusCode(), errorResponse.Message)
}

func battlePath(playerOne ledger.Identity, battleID uint64, action string) string {
	path := "/api/escrow/battles/" + string(playerOne) + "/" + strconv.FormatUint(battleID, 10)
	if action != "" {
		path += "/" + action
	}

	return path
}
