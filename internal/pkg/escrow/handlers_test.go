package escrow_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/escrow"
	"github.com/vreid/escrow/internal/pkg/ledger"
)

func newRouter(f *fixture) *echo.Echo {
	e := common.NewEcho(f.service.Logger)
	f.service.Routes(e)

	return e
}

func serve(t *testing.T, e *echo.Echo, method string, path string, caller ledger.Identity, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	if caller != "" {
		req.Header.Set(common.CallerHeader, string(caller))
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var value T

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))

	return value
}

func TestHandlersBattleFlow(t *testing.T) {
	t.Parallel()

	f := newGame(t, 500, 100)
	e := newRouter(f)

	rec := serve(t, e, http.MethodPost, "/api/escrow/battles", alice, `{"battle_id":7}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	battle := decode[escrow.Battle](t, rec)
	assert.Equal(t, escrow.StatusPending, battle.Status)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = serve(t, e, http.MethodGet, "/api/escrow/battles/alice/7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, battle, decode[escrow.Battle](t, rec))

	rec = serve(t, e, http.MethodPost, "/api/escrow/battles/alice/7/join", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, escrow.StatusInProgress, decode[escrow.Battle](t, rec).Status)

	rec = serve(t, e, http.MethodPost, "/api/escrow/battles/alice/7/join", "carol", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	response := decode[escrow.ErrorResponse](t, rec)
	assert.Equal(t, escrow.CodeInvalidBattleStatus, response.Code)
	assert.Equal(t, "InvalidBattleStatus", response.Kind)

	rec = serve(t, e, http.MethodPost, "/api/escrow/battles/alice/7/result", alice, `{"result":1}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, escrow.CodeUnauthorized, decode[escrow.ErrorResponse](t, rec).Code)

	rec = serve(t, e, http.MethodPost, "/api/escrow/battles/alice/7/result", bob, `{"result":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	outcome := decode[escrow.Outcome](t, rec)
	assert.Equal(t, uint64(10), outcome.Receipt.Fee)
	assert.True(t, escrow.VerifyReceipt(outcome.Receipt, []byte(secret)))

	rec = serve(t, e, http.MethodGet, "/api/escrow/receipts/"+outcome.Receipt.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, outcome.Receipt, decode[escrow.Receipt](t, rec))

	rec = serve(t, e, http.MethodGet, "/api/escrow/battles/alice/7", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, escrow.CodeBattleNotFound, decode[escrow.ErrorResponse](t, rec).Code)
}

func TestHandlersConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.registerUnit(t, unitID, 2)
	e := newRouter(f)

	rec := serve(t, e, http.MethodGet, "/api/escrow/config", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, escrow.CodeConfigNotFound, decode[escrow.ErrorResponse](t, rec).Code)

	rec = serve(t, e, http.MethodPost, "/api/escrow/config", "", `{"value_unit":"STAKE","fee_bps":500,"price":1}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, e, http.MethodPost, "/api/escrow/config", admin, `{"value_unit":"STAKE","fee_bps":500,"price":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint64(100), decode[escrow.Config](t, rec).StakePrice)

	rec = serve(t, e, http.MethodPut, "/api/escrow/config/fee-bps", alice, `{"fee_bps":1}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, e, http.MethodPut, "/api/escrow/config/fee-bps", admin, `{"fee_bps":20000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, escrow.CodeInvalidFee, decode[escrow.ErrorResponse](t, rec).Code)

	rec = serve(t, e, http.MethodPut, "/api/escrow/config/stake-price", admin, `{"price":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, e, http.MethodGet, "/api/escrow/config", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view := decode[escrow.ConfigView](t, rec)
	assert.Equal(t, uint64(400), view.StakePrice)
	assert.Equal(t, "4.00", view.StakePriceDisplay)
	assert.Equal(t, uint64(500), view.FeeBps)
}

func TestHandlersRejectBadInput(t *testing.T) {
	t.Parallel()

	f := newGame(t, 500, 100)
	e := newRouter(f)

	rec := serve(t, e, http.MethodGet, "/api/escrow/battles/alice/not-a-number", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, e, http.MethodPost, "/api/escrow/battles", alice, `{"battle_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, e, http.MethodPost, "/api/escrow/battles/alice/1/withdraw", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, e, http.MethodGet, "/api/escrow/receipts/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, escrow.CodeReceiptNotFound, decode[escrow.ErrorResponse](t, rec).Code)
}

func TestHandlersRejectOutOfRangeResult(t *testing.T) {
	t.Parallel()

	f := newGame(t, 500, 100)
	e := newRouter(f)

	rec := serve(t, e, http.MethodPost, "/api/escrow/battles", alice, `{"battle_id":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(t, e, http.MethodPost, "/api/escrow/battles/alice/1/join", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)

	for _, body := range []string{`{"result":300}`, `{"result":-1}`, `{"result":2}`} {
		rec = serve(t, e, http.MethodPost, "/api/escrow/battles/alice/1/result", bob, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)

		response := decode[escrow.ErrorResponse](t, rec)
		assert.Equal(t, escrow.CodeInvalidBattleResult, response.Code, body)
		assert.Equal(t, "InvalidBattleResult", response.Kind, body)
	}

	assert.Equal(t, uint64(200), f.escrowBalance(t, alice, 1))
}
