package handlers

import (
	"errors"
	"net/http"

	"github.com/ruralpay/supplycredit/internal/middleware"
	"github.com/ruralpay/supplycredit/internal/models"
	"github.com/ruralpay/supplycredit/internal/services"
)

type TransactionHandler struct {
	service   *services.TransactionService
	validator *services.ValidationHelper
}

func NewTransactionHandler(service *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

type CodeDebitRequest struct {
	Code        string `json:"code" validate:"required,max=32"`
	Description string `json:"description,omitempty" validate:"max=200"`
}

type TokenDebitRequest struct {
	Token       string `json:"token" validate:"required,max=4096"`
	Description string `json:"description,omitempty" validate:"max=200"`
}

// DebitResponse is returned for every debit attempt. Action is one of
// ok, block, locked or error.
type DebitResponse struct {
	Action        string                      `json:"action"`
	Message       string                      `json:"message"`
	Reference     string                      `json:"reference,omitempty"`
	AccountID     int64                       `json:"accountId,omitempty"`
	Name          string                      `json:"name,omitempty"`
	Balance       *int64                      `json:"balance,omitempty"`
	Limit         *int64                      `json:"limit,omitempty"`
	Entry         *models.LedgerEntry         `json:"entry,omitempty"`
	Notifications []models.NotificationResult `json:"notifications,omitempty"`
}

// DebitByCode books a transaction against a manually entered code
// @Summary Debit by presentation code
// @Description Book the configured transaction amount against the account with the given code
// @Tags transactions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param Idempotency-Key header string false "Replay protection key"
// @Param request body CodeDebitRequest true "Code debit request"
// @Success 201 {object} DebitResponse
// @Failure 400 {object} DebitResponse
// @Failure 402 {object} DebitResponse
// @Failure 403 {object} DebitResponse
// @Failure 404 {object} DebitResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} DebitResponse
// @Router /transactions/code [post]
func (h *TransactionHandler) DebitByCode(w http.ResponseWriter, r *http.Request) {
	var req CodeDebitRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	caller, _ := middleware.CallerFrom(r.Context())

	receipt, err := h.service.DebitByCode(r.Context(), caller, req.Code, req.Description)
	writeDebit(w, receipt, err)
}

// DebitByToken books a transaction against a card token
// @Summary Debit by token
// @Description Book the configured transaction amount against the account owning the base64 encoded token
// @Tags transactions
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param Idempotency-Key header string false "Replay protection key"
// @Param request body TokenDebitRequest true "Token debit request"
// @Success 201 {object} DebitResponse
// @Failure 400 {object} DebitResponse
// @Failure 402 {object} DebitResponse
// @Failure 403 {object} DebitResponse
// @Failure 404 {object} DebitResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 500 {object} DebitResponse
// @Router /transactions/token [post]
func (h *TransactionHandler) DebitByToken(w http.ResponseWriter, r *http.Request) {
	var req TokenDebitRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	caller, _ := middleware.CallerFrom(r.Context())

	receipt, err := h.service.DebitByToken(r.Context(), caller, req.Token, req.Description)
	writeDebit(w, receipt, err)
}

func writeDebit(w http.ResponseWriter, receipt *models.Receipt, err error) {
	if err != nil {
		resp := DebitResponse{Action: services.ActionFor(err), Message: services.UserMessage(err)}
		var funds *services.InsufficientFundsError
		if errors.As(err, &funds) {
			resp.AccountID = funds.AccountID
			resp.Balance = &funds.Balance
			resp.Limit = &funds.Limit
		}
		writeJSON(w, debitStatus(err), resp)
		return
	}

	writeJSON(w, http.StatusCreated, DebitResponse{
		Action:        services.ActionOK,
		Message:       receipt.Message,
		Reference:     receipt.Reference,
		AccountID:     receipt.AccountID,
		Name:          receipt.Name,
		Balance:       &receipt.Balance,
		Entry:         &receipt.Entry,
		Notifications: receipt.Notifications,
	})
}

func debitStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrAccountLocked):
		return http.StatusForbidden
	case errors.Is(err, services.ErrIdentityNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrMalformedCredential):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
