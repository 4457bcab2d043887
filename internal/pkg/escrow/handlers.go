package escrow

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/ledger"
)

func (s *EscrowService) Routes(e *echo.Echo) {
	apiGroup := e.Group("/api")

	escrowGroup := apiGroup.Group("/escrow")

	escrowGroup.POST("/config", s.PostConfig)
	escrowGroup.GET("/config", s.GetConfig)
	escrowGroup.PUT("/config/fee-bps", s.PutFeeBps)
	escrowGroup.PUT("/config/stake-price", s.PutStakePrice)
	escrowGroup.PUT("/config/value-unit", s.PutValueUnit)

	escrowGroup.POST("/battles", s.PostBattle)
	escrowGroup.GET("/battles/:player_one/:battle_id", s.GetBattle)
	escrowGroup.POST("/battles/:player_one/:battle_id/join", s.PostJoin)
	escrowGroup.POST("/battles/:player_one/:battle_id/result", s.PostResult)
	escrowGroup.POST("/battles/:player_one/:battle_id/withdraw", s.PostWithdraw)
	escrowGroup.POST("/battles/:player_one/:battle_id/admin-withdraw", s.PostAdminWithdraw)

	escrowGroup.GET("/receipts/:id", s.GetReceipt)
}

func HTTPError(err error) *echo.HTTPError {
	status, response := NewErrorResponse(err)

	return echo.NewHTTPError(status, response)
}

func (s *EscrowService) PostConfig(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	var request InitializeRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	config, err := s.Initialize(ledger.Identity(caller), request)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusCreated, config)
}

func (s *EscrowService) GetConfig(c echo.Context) error {
	config, err := s.Config()
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, config)
}

func (s *EscrowService) PutFeeBps(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	var request FeeBpsRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	config, err := s.UpdateFeeBps(ledger.Identity(caller), request.FeeBps)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, config)
}

func (s *EscrowService) PutStakePrice(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	var request StakePriceRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	config, err := s.UpdateStakePrice(ledger.Identity(caller), request.Price)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, config)
}

func (s *EscrowService) PutValueUnit(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	var request ValueUnitRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	config, err := s.UpdateValueUnit(ledger.Identity(caller), request.ValueUnit)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, config)
}

func (s *EscrowService) PostBattle(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	var request CreateBattleRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	battle, err := s.Create(ledger.Identity(caller), request.BattleID)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusCreated, battle)
}

func (s *EscrowService) GetBattle(c echo.Context) error {
	playerOne, battleID, err := battleParams(c)
	if err != nil {
		return err
	}

	battle, err := s.Battle(playerOne, battleID)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, battle)
}

func (s *EscrowService) PostJoin(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	playerOne, battleID, err := battleParams(c)
	if err != nil {
		return err
	}

	battle, err := s.Join(playerOne, battleID, ledger.Identity(caller))
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, battle)
}

func (s *EscrowService) PostResult(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	playerOne, battleID, err := battleParams(c)
	if err != nil {
		return err
	}

	var request ResultRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := ParseResult(request.Result)
	if err != nil {
		return HTTPError(err)
	}

	outcome, err := s.RecordResult(ledger.Identity(caller), playerOne, battleID, result)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, outcome)
}

func (s *EscrowService) PostWithdraw(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	playerOne, battleID, err := battleParams(c)
	if err != nil {
		return err
	}

	outcome, err := s.Withdraw(ledger.Identity(caller), playerOne, battleID)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, outcome)
}

func (s *EscrowService) PostAdminWithdraw(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	playerOne, battleID, err := battleParams(c)
	if err != nil {
		return err
	}

	var request AdminWithdrawRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outcome, err := s.AdminWithdraw(ledger.Identity(caller), playerOne, battleID, request.PlayerTwo)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, outcome)
}

func (s *EscrowService) GetReceipt(c echo.Context) error {
	receipt, err := s.Receipt(c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, receipt)
}

func battleParams(c echo.Context) (ledger.Identity, uint64, error) {
	playerOne := c.Param("player_one")
	if playerOne == "" {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "missing player one")
	}

	battleID, err := strconv.ParseUint(c.Param("battle_id"), 10, 64)
	if err != nil {
		return "", 0, echo.NewHTTPError(http.StatusBadRequest, "invalid battle id")
	}

	return ledger.Identity(playerOne), battleID, nil
}
