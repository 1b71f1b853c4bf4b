// Package model defines domain types used by the service.
package model

import (
	"github.com/fairyhunter13/pos-register-simulator/internal/money"
	"github.com/shopspring/decimal"
)

// CatalogEntry is an immutable snapshot of a product in inventory.
// Any change produces a new value.
type CatalogEntry struct {
	UPC            string          `json:"upc"`
	Name           string          `json:"name"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	RetailPrice    decimal.Decimal `json:"retail_price"`
	Quantity       int             `json:"quantity"`
}

// NewCatalogEntry builds an entry with both prices rounded to money.Scale.
func NewCatalogEntry(upc, name string, wholesale, retail decimal.Decimal, qty int) CatalogEntry {
	return CatalogEntry{
		UPC:            upc,
		Name:           name,
		WholesalePrice: money.Round(wholesale),
		RetailPrice:    money.Round(retail),
		Quantity:       qty,
	}
}

// WithQuantity returns a copy of e holding qty.
func (e CatalogEntry) WithQuantity(qty int) CatalogEntry {
	e.Quantity = qty
	return e
}

// Record is one replenishment row: prices to apply and a quantity to add.
type Record struct {
	UPC            string          `json:"upc"`
	Name           string          `json:"name"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	RetailPrice    decimal.Decimal `json:"retail_price"`
	Quantity       int             `json:"quantity"`
}

// Entry converts r into the catalog entry it would create on an empty store.
func (r Record) Entry() CatalogEntry {
	return NewCatalogEntry(r.UPC, r.Name, r.WholesalePrice, r.RetailPrice, r.Quantity)
}

// StockEvent is an asynchronous inventory change. Exactly one of Record
// (replenishment) or Delta (adjustment of UPC) is meaningful.
type StockEvent struct {
	UPC      string  `json:"upc"`
	Delta    int     `json:"delta"`
	Record   *Record `json:"record,omitempty"`
	Sequence uint64  `json:"-"`
}

// IsReplenishment reports whether ev carries a full replenishment record.
func (ev StockEvent) IsReplenishment() bool { return ev.Record != nil }
