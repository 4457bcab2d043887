package ledger

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/samber/do/v2"
	"github.com/vreid/escrow/internal/pkg/common"
	bolt "go.etcd.io/bbolt"
)

type LedgerService struct {
	DatabaseService *common.DatabaseService
	Logger          *log.Logger
}

func NewLedgerService(i do.Injector) (*LedgerService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)
	logger := do.MustInvoke[*log.Logger](i)

	result := &LedgerService{
		DatabaseService: databaseService,
		Logger:          logger,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(result.Routes)

	return result, nil
}

func (s *LedgerService) Routes(e *echo.Echo) {
	apiGroup := e.Group("/api")

	ledgerGroup := apiGroup.Group("/ledger")

	ledgerGroup.POST("/units", s.PostUnit)
	ledgerGroup.GET("/units/:unit", s.GetUnit)
	ledgerGroup.POST("/units/:unit/mint", s.PostMint)
	ledgerGroup.GET("/units/:unit/balances/:owner", s.GetBalance)
}

func (s *LedgerService) RegisterUnit(authority Identity, request RegisterUnitRequest) (Unit, error) {
	unit := Unit{
		ID:        request.ID,
		Decimals:  request.Decimals,
		Authority: authority,
	}

	err := s.update(func(book *Book) error {
		return book.RegisterUnit(unit)
	})
	if err != nil {
		return Unit{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "register_unit", "unit": unit.ID, "decimals": unit.Decimals})

	return unit, nil
}

func (s *LedgerService) Mint(authority Identity, unit UnitID, request MintRequest) (BalanceResponse, error) {
	var result BalanceResponse

	err := s.update(func(book *Book) error {
		account, err := book.Mint(authority, unit, request.Owner, request.Amount)
		if err != nil {
			return err
		}

		result, err = balanceResponse(book, request.Owner, unit, account.Balance)

		return err
	})
	if err != nil {
		return BalanceResponse{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "mint", "unit": unit, "owner": request.Owner, "amount": request.Amount})

	return result, nil
}

func (s *LedgerService) Balance(owner Identity, unit UnitID) (BalanceResponse, error) {
	var result BalanceResponse

	err := s.view(func(book *Book) error {
		amount, err := book.Balance(owner, unit)
		if err != nil {
			return err
		}

		result, err = balanceResponse(book, owner, unit, amount)

		return err
	})

	return result, err
}

func (s *LedgerService) Unit(id UnitID) (Unit, error) {
	var result Unit

	err := s.view(func(book *Book) error {
		var err error

		result, err = book.Unit(id)

		return err
	})

	return result, err
}

func (s *LedgerService) PostUnit(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	var request RegisterUnitRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	unit, err := s.RegisterUnit(Identity(caller), request)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusCreated, unit)
}

func (s *LedgerService) GetUnit(c echo.Context) error {
	unit, err := s.Unit(UnitID(c.Param("unit")))
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, unit)
}

func (s *LedgerService) PostMint(c echo.Context) error {
	caller, err := common.Caller(c)
	if err != nil {
		return err
	}

	var request MintRequest

	err = c.Bind(&request)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	balance, err := s.Mint(Identity(caller), UnitID(c.Param("unit")), request)
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, balance)
}

func (s *LedgerService) GetBalance(c echo.Context) error {
	balance, err := s.Balance(Identity(c.Param("owner")), UnitID(c.Param("unit")))
	if err != nil {
		return HTTPError(err)
	}

	//nolint:wrapcheck
	return c.JSON(http.StatusOK, balance)
}

func HTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrUnitNotFound), errors.Is(err, ErrAccountNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnitExists), errors.Is(err, ErrAccountExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrMintUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidUnit), errors.Is(err, ErrInvalidOwner), errors.Is(err, ErrUnitMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrOverflow):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "ledger failure")
	}
}

func balanceResponse(book *Book, owner Identity, unitID UnitID, amount uint64) (BalanceResponse, error) {
	unit, err := book.Unit(unitID)
	if err != nil {
		return BalanceResponse{}, err
	}

	return BalanceResponse{
		Owner:   owner,
		Unit:    unitID,
		Account: FundingAccount(owner, unitID),
		Amount:  amount,
		Display: Format(amount, unit.Decimals),
	}, nil
}

func (s *LedgerService) update(fn func(book *Book) error) error {
	//nolint:wrapcheck
	return s.DatabaseService.DB.Update(func(tx *bolt.Tx) error {
		book, err := NewBook(tx)
		if err != nil {
			return err
		}

		return fn(book)
	})
}

func (s *LedgerService) view(fn func(book *Book) error) error {
	//nolint:wrapcheck
	return s.DatabaseService.DB.View(func(tx *bolt.Tx) error {
		book, err := NewBook(tx)
		if err != nil {
			return err
		}

		return fn(book)
	})
}
