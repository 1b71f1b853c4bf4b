package httpapi

import (
	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/money"
	"github.com/fairyhunter13/pos-register-simulator/internal/register"
)

// Response bodies carry money as fixed two-digit strings.

type productView struct {
	UPC            string `json:"upc"`
	Name           string `json:"name"`
	WholesalePrice string `json:"wholesale_price"`
	RetailPrice    string `json:"retail_price"`
	Quantity       int    `json:"quantity"`
}

func newProductView(e model.CatalogEntry) productView {
	return productView{
		UPC:            e.UPC,
		Name:           e.Name,
		WholesalePrice: money.Format(e.WholesalePrice),
		RetailPrice:    money.Format(e.RetailPrice),
		Quantity:       e.Quantity,
	}
}

type lineItemView struct {
	UPC           string `json:"upc"`
	Name          string `json:"name"`
	UnitPrice     string `json:"unit_price"`
	Quantity      int    `json:"quantity"`
	ExtendedPrice string `json:"extended_price"`
}

type transactionView struct {
	RegisterID    string         `json:"register_id"`
	TransactionID string         `json:"transaction_id"`
	State         string         `json:"state"`
	Count         int            `json:"count"`
	Total         string         `json:"total"`
	Paid          string         `json:"paid"`
	Change        string         `json:"change"`
	LineItems     []lineItemView `json:"line_items"`
}

func newTransactionView(registerID string, tx *register.Transaction) transactionView {
	items := tx.LineItems()
	v := transactionView{
		RegisterID:    registerID,
		TransactionID: tx.ID().String(),
		State:         tx.State().String(),
		Count:         tx.Count(),
		Total:         money.Format(tx.Total()),
		Paid:          money.Format(tx.Paid()),
		Change:        money.Format(tx.Change()),
		LineItems:     make([]lineItemView, 0, len(items)),
	}
	for _, li := range items {
		v.LineItems = append(v.LineItems, lineItemView{
			UPC:           li.UPC,
			Name:          li.Name,
			UnitPrice:     money.Format(li.UnitPrice),
			Quantity:      li.Quantity,
			ExtendedPrice: money.Format(li.ExtendedPrice()),
		})
	}
	return v
}
