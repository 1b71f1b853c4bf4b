package httpapi

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/fairyhunter13/pos-register-simulator/internal/money"
	"github.com/fairyhunter13/pos-register-simulator/internal/register"
	"github.com/shopspring/decimal"
)

type scanRequest struct {
	UPC string `json:"upc"`
}

type scanResponse struct {
	InStock bool   `json:"in_stock"`
	Count   int    `json:"count"`
	Total   string `json:"total"`
}

type payRequest struct {
	Amount decimal.NullDecimal `json:"amount"`
}

type payResponse struct {
	TransactionID string `json:"transaction_id"`
	Total         string `json:"total"`
	Paid          string `json:"paid"`
	Change        string `json:"change"`
}

// withLane resolves the register named in the path, creating it if needed.
func (a *App) withLane(w http.ResponseWriter, r *http.Request) (*lane, bool) {
	id := r.PathValue("id")
	if id == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return nil, false
	}
	ln, err := a.registers.get(id)
	if errors.Is(err, errRegisterLimit) {
		WriteJSONError(w, http.StatusTooManyRequests, "register_limit_reached", err.Error())
		return nil, false
	}
	return ln, true
}

// existingLane resolves a register that must already exist.
func (a *App) existingLane(w http.ResponseWriter, r *http.Request) (*lane, bool) {
	ln, ok := a.registers.lookup(r.PathValue("id"))
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "unknown register")
	}
	return ln, ok
}

func (a *App) beginHandler(w http.ResponseWriter, r *http.Request) {
	ln, ok := a.withLane(w, r)
	if !ok {
		return
	}
	var view transactionView
	err := ln.do(func(reg *register.Register) error {
		tx, err := reg.Begin()
		if err != nil {
			return err
		}
		view = newTransactionView(reg.ID(), tx)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (a *App) scanHandler(w http.ResponseWriter, r *http.Request) {
	if !hasContentType(r, "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	ln, ok := a.existingLane(w, r)
	if !ok {
		return
	}
	var resp scanResponse
	err := ln.do(func(reg *register.Register) error {
		inStock, err := reg.Scan(req.UPC)
		if err != nil {
			return err
		}
		tx, _ := reg.Transaction()
		resp = scanResponse{InStock: inStock, Count: tx.Count(), Total: money.Format(tx.Total())}
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) payHandler(w http.ResponseWriter, r *http.Request) {
	if !hasContentType(r, "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	ln, ok := a.existingLane(w, r)
	if !ok {
		return
	}
	var resp payResponse
	err := ln.do(func(reg *register.Register) error {
		change, err := reg.Pay(req.Amount)
		if err != nil {
			return err
		}
		tx, _ := reg.Transaction()
		resp = payResponse{
			TransactionID: tx.ID().String(),
			Total:         money.Format(tx.Total()),
			Paid:          money.Format(tx.Paid()),
			Change:        money.Format(change),
		}
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) transactionHandler(w http.ResponseWriter, r *http.Request) {
	ln, ok := a.existingLane(w, r)
	if !ok {
		return
	}
	var view transactionView
	err := ln.do(func(reg *register.Register) error {
		tx, ok := reg.Transaction()
		if !ok {
			return register.ErrInvalidState
		}
		view = newTransactionView(reg.ID(), tx)
		return nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *App) receiptHandler(w http.ResponseWriter, r *http.Request) {
	ln, ok := a.existingLane(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	err := ln.do(func(reg *register.Register) error {
		tx, ok := reg.Transaction()
		if !ok {
			return register.ErrInvalidState
		}
		return a.Printer.Print(&buf, tx)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
