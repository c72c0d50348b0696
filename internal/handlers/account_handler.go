package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ruralpay/supplycredit/internal/middleware"
	"github.com/ruralpay/supplycredit/internal/services"
	"go.uber.org/zap"
)

type AccountHandler struct {
	service   *services.LedgerService
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewAccountHandler(service *services.LedgerService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service:   service,
		validator: services.NewValidationHelper(),
		log:       log.Named("accounts"),
	}
}

type CreditRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description,omitempty" validate:"max=200"`
}

type ThresholdRequest struct {
	// Threshold clears the alert when null.
	Threshold *int64 `json:"threshold"`
}

// ListAccounts lists all accounts with their balances
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AccountBalance
// @Failure 401 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount returns one account with its balance
// @Summary Get account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} models.AccountBalance
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	account, err := h.service.Account(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ListEntries returns the newest ledger entries of an account
// @Summary List ledger entries
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param limit query int false "Maximum number of entries (default 50, max 500)"
// @Success 200 {array} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/entries [get]
func (h *AccountHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			services.SendErrorResponse(w, "limit must be a non-negative integer", http.StatusBadRequest, nil)
			return
		}
		limit = n
	}

	entries, err := h.service.Entries(r.Context(), id, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Credit tops up an account
// @Summary Credit account
// @Description Append a positive entry to the account ledger
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body CreditRequest true "Credit request"
// @Success 201 {object} models.Receipt
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/credits [post]
func (h *AccountHandler) Credit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req CreditRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	caller, _ := middleware.CallerFrom(r.Context())

	receipt, err := h.service.Credit(r.Context(), caller, id, req.Amount, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// Lock disables debits on an account
// @Summary Lock account
// @Tags accounts
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 204
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/lock [put]
func (h *AccountHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true)
}

// Unlock re-enables debits on an account
// @Summary Unlock account
// @Tags accounts
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 204
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/unlock [put]
func (h *AccountHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false)
}

func (h *AccountHandler) setLocked(w http.ResponseWriter, r *http.Request, locked bool) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	caller, _ := middleware.CallerFrom(r.Context())
	if err := h.service.SetLocked(r.Context(), caller, id, locked); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetThreshold sets or clears the operator alert threshold
// @Summary Set operator threshold
// @Tags accounts
// @Accept json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body ThresholdRequest true "Threshold, null to clear"
// @Success 204
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id}/threshold [put]
func (h *AccountHandler) SetThreshold(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req ThresholdRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	caller, _ := middleware.CallerFrom(r.Context())
	if err := h.service.SetThreshold(r.Context(), caller, id, req.Threshold); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary returns ledger totals across all accounts
// @Summary Ledger summary
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.LedgerSummary
// @Failure 500 {object} services.ErrorResponse
// @Router /summary [get]
func (h *AccountHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *AccountHandler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := accountIDParam(r)
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

func (h *AccountHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrIdentityNotFound):
		services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
	case errors.Is(err, services.ErrInvalidAmount):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	default:
		h.log.Error("account request failed", zap.Error(err))
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
