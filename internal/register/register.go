// Package register implements the cash register and its sale transactions.
package register

import (
	"fmt"

	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/money"
	"github.com/fairyhunter13/pos-register-simulator/internal/obs"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Inventory is the part of the inventory store a register needs.
type Inventory interface {
	Find(upc string) (model.CatalogEntry, bool)
	AdjustQuantity(upc string, delta int) (model.CatalogEntry, bool)
}

// Register drives one transaction at a time against a shared inventory.
// A Register is not safe for concurrent use.
type Register struct {
	id  string
	inv Inventory
	tx  *Transaction
}

// New returns a register identified by id.
func New(id string, inv Inventory) *Register {
	return &Register{id: id, inv: inv}
}

func (r *Register) ID() string { return r.id }

// Transaction returns the current transaction, paid or not.
func (r *Register) Transaction() (*Transaction, bool) {
	return r.tx, r.tx != nil
}

// Begin opens a new transaction. A paid previous transaction is dropped.
func (r *Register) Begin() (*Transaction, error) {
	if r.tx != nil && !r.tx.IsPaid() {
		return nil, fmt.Errorf("%w: transaction %s has already been started", ErrInvalidState, r.tx.ID())
	}
	r.tx = NewTransaction()
	obs.Logger.Info("transaction_started",
		zap.String("register_id", r.id),
		zap.String("transaction_id", r.tx.ID().String()),
	)
	return r.tx, nil
}

// Scan adds one unit of upc to the open transaction. It returns false when
// the UPC is unknown (the transaction is unchanged) or when the scanned
// quantity now exceeds the recorded stock.
func (r *Register) Scan(upc string) (bool, error) {
	if r.tx == nil {
		return false, fmt.Errorf("%w: transaction has not been started; start a transaction before scanning", ErrInvalidState)
	}
	if upc == "" {
		return false, fmt.Errorf("%w: upc is required", ErrInvalidArgument)
	}
	product, ok := r.inv.Find(upc)
	if !ok {
		obs.Logger.Debug("scan_unknown_upc", zap.String("register_id", r.id), zap.String("upc", upc))
		return false, nil
	}
	return r.tx.Add(&product, 1)
}

// Total returns the running total of the current transaction.
func (r *Register) Total() (decimal.Decimal, error) {
	if r.tx == nil {
		return decimal.Decimal{}, fmt.Errorf("%w: transaction has not been started", ErrInvalidState)
	}
	return r.tx.Total(), nil
}

// Pay settles the open transaction and, on success, debits the inventory
// for every line item. Debits against products no longer in inventory are
// ignored; the payment stands regardless.
func (r *Register) Pay(tendered decimal.NullDecimal) (decimal.Decimal, error) {
	if r.tx == nil {
		return decimal.Decimal{}, fmt.Errorf("%w: transaction has not been started; cannot pay", ErrInvalidState)
	}
	change, err := r.tx.Pay(tendered)
	if err != nil {
		return decimal.Decimal{}, err
	}
	obs.Logger.Info("transaction_paid",
		zap.String("register_id", r.id),
		zap.String("transaction_id", r.tx.ID().String()),
		zap.Int("count", r.tx.Count()),
		zap.String("total", money.Format(r.tx.Total())),
		zap.String("change", money.Format(change)),
	)
	r.debit()
	return change, nil
}

func (r *Register) debit() {
	for _, li := range r.tx.LineItems() {
		e, ok := r.inv.AdjustQuantity(li.UPC, -li.Quantity)
		if !ok {
			obs.Logger.Warn("debit_skipped_missing_product",
				zap.String("register_id", r.id),
				zap.String("upc", li.UPC),
				zap.Int("quantity", li.Quantity),
			)
			continue
		}
		if e.Quantity <= 0 {
			obs.Logger.Warn("stock_depleted",
				zap.String("upc", e.UPC),
				zap.String("name", e.Name),
				zap.Int("quantity", e.Quantity),
			)
		}
	}
}
