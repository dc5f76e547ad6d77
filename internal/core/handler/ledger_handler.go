package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/Nzyazin/ledger/internal/core/logger"
	"github.com/Nzyazin/ledger/internal/core/models"
	"github.com/Nzyazin/ledger/internal/core/usecase"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const (
	maxBodyBytes         = 1 << 20
	messageFormatInvalid = "The '%s' format is invalid"
)

type LedgerHandler struct {
	usecase  usecase.LedgerUsecase
	validate *validator.Validate
	log      logger.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string   `json:"status"`
	Tables []string `json:"tables,omitempty"`
}

func NewLedgerHandler(usecase usecase.LedgerUsecase, log logger.Logger) *LedgerHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &LedgerHandler{usecase: usecase, validate: validate, log: log}
}

// RegisterRoutes keeps every route on the top-level router so a wrong method answers 405.
func (h *LedgerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/transactions", h.RecordTransactions).Methods(http.MethodPost)
	router.HandleFunc("/api/transactions", h.DeleteTransactions).Methods(http.MethodDelete)
	router.HandleFunc("/api/hello", h.Hello).Methods(http.MethodGet)
	router.HandleFunc("/api/{wallet_id}/balance", h.GetBalance).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
}

func (h *LedgerHandler) RecordTransactions(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(w, r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validateRequest(req); err != nil {
		h.log.Warn("Invalid transactions payload", logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs := req.ToTransactions()
	if err := h.usecase.RecordTransactions(r.Context(), txs); err != nil {
		h.log.Error("Failed to record transactions",
			logger.IntField("count", len(txs)),
			logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "Failed to record transactions")
		return
	}

	summary, err := h.balanceSummary(r.Context(), distinctWallets(txs))
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute balances")
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *LedgerHandler) DeleteTransactions(w http.ResponseWriter, r *http.Request) {
	if err := h.usecase.ResetLedger(r.Context()); err != nil {
		h.log.Error("Failed to delete transactions", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "Failed to delete transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, "Transactions deleted successfully")
}

func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	walletID := mux.Vars(r)["wallet_id"]

	balance, err := h.usecase.GetBalance(r.Context(), walletID)
	if err != nil {
		h.handleBalanceError(w, walletID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, models.WalletBalance{WalletID: walletID, Balance: balance})
}

func (h *LedgerHandler) Hello(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Hello, World!"))
}

func (h *LedgerHandler) Health(w http.ResponseWriter, r *http.Request) {
	tables, err := h.usecase.VerifyConnectivity(r.Context())
	if err != nil {
		h.log.Warn("Health check failed", logger.ErrorField("error", err))
		respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Tables: tables})
}

func (h *LedgerHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*models.WalletTransactionsRequest, error) {
	var req models.WalletTransactionsRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode request body", logger.ErrorField("error", err))
		if errors.Is(err, models.ErrUnknownTransactionType) {
			return nil, fmt.Errorf(messageFormatInvalid, "transaction_type")
		}
		return nil, fmt.Errorf("invalid request payload")
	}
	return &req, nil
}

func (h *LedgerHandler) validateRequest(req *models.WalletTransactionsRequest) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf(messageFormatInvalid, fieldPath(fe)))
	}
	return errors.New(strings.Join(msgs, " and "))
}

func (h *LedgerHandler) balanceSummary(ctx context.Context, wallets []string) ([]string, error) {
	summary := make([]string, 0, len(wallets))
	for _, wallet := range wallets {
		balance, err := h.usecase.GetBalance(ctx, wallet)
		if err != nil {
			h.log.Error("Failed to compute balance",
				logger.StringField("wallet_id", wallet),
				logger.ErrorField("error", err))
			return nil, err
		}
		summary = append(summary, fmt.Sprintf("Balance for %s: %d", wallet, balance))
	}
	return summary, nil
}

func (h *LedgerHandler) handleBalanceError(w http.ResponseWriter, walletID string, err error) {
	switch {
	case usecase.IsOverflow(err):
		h.log.Error("Balance out of range",
			logger.StringField("wallet_id", walletID),
			logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "Balance out of range")
	default:
		h.log.Error("Failed to get balance",
			logger.StringField("wallet_id", walletID),
			logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "Failed to get balance")
	}
}

// fieldPath drops the request struct name, leaving e.g. transactions[1].wallet_address.
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

// distinctWallets keeps the order in which wallets first appear in the batch.
func distinctWallets(txs []models.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	wallets := make([]string, 0, len(txs))
	for _, tx := range txs {
		if _, ok := seen[tx.WalletAddress]; ok {
			continue
		}
		seen[tx.WalletAddress] = struct{}{}
		wallets = append(wallets, tx.WalletAddress)
	}
	return wallets
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error"}`)) // Fallback response
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
