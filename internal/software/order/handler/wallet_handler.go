package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/jwt"
	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- Request DTO (HTTP boundary) ---

type walletAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// --- Handler: GET /wallet ---

func (handler *OrderHTTPHandler) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	res, err := handler.wallet.Balance(ctx, strings.TrimSpace(claims.Subject))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, res)
}

// --- Handler: POST /wallet/deposit ---

func (handler *OrderHTTPHandler) handleWalletDeposit(w http.ResponseWriter, r *http.Request) {
	handler.handleWalletOp(w, r, handler.wallet.Deposit)
}

// --- Handler: POST /wallet/withdraw ---

func (handler *OrderHTTPHandler) handleWalletWithdraw(w http.ResponseWriter, r *http.Request) {
	handler.handleWalletOp(w, r, handler.wallet.Withdraw)
}

// handleWalletOp shares the decode/validate path of deposit and withdraw.
func (handler *OrderHTTPHandler) handleWalletOp(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, ownerID string, amount decimal.Decimal) (ports.WalletOpResult, error),
) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10) // 64 KiB
	defer r.Body.Close()

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	var req walletAmountRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}
	if !req.Amount.IsPositive() {
		handler.httpError(ctx, w, http.StatusBadRequest, "amount must be positive", errors.New("non-positive amount"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := op(ctxWithTimeout, strings.TrimSpace(claims.Subject), req.Amount)
	if err != nil {
		var insufficientErr *wallet.InsufficientBalanceError
		if errors.As(err, &insufficientErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusUnprocessableEntity, insufficientErr.Error(), err)
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
