// Package receipt renders paid transactions as fixed-width text.
package receipt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fairyhunter13/pos-register-simulator/internal/register"
	"github.com/shopspring/decimal"
)

const rule = "-----------------------------"

// View is the read-only side of a transaction the printer consumes.
type View interface {
	IsPaid() bool
	Count() int
	LineItems() []register.LineItem
	Total() decimal.Decimal
	Paid() decimal.Decimal
	Change() decimal.Decimal
}

// Printer writes receipts.
type Printer struct {
	StoreName      string
	CurrencySymbol string
}

// NewPrinter returns a Printer with the given header and currency symbol.
func NewPrinter(storeName, currencySymbol string) *Printer {
	return &Printer{StoreName: storeName, CurrencySymbol: currencySymbol}
}

// Print writes the receipt for tx to w. Unpaid transactions, including a nil
// *register.Transaction, are rejected with register.ErrInvalidState.
func (p *Printer) Print(w io.Writer, tx View) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction is required", register.ErrInvalidArgument)
	}
	if !tx.IsPaid() {
		return fmt.Errorf("%w: cannot print a receipt for an unpaid transaction", register.ErrInvalidState)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, p.StoreName)
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "Total Products Bought: %d\n", tx.Count())
	fmt.Fprintln(bw)
	for _, li := range tx.LineItems() {
		fmt.Fprintf(bw, "%d %s @ %s: %s\n", li.Quantity, li.Name, p.Money(li.UnitPrice), p.Money(li.ExtendedPrice()))
	}
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "Total: %s\n", p.Money(tx.Total()))
	fmt.Fprintf(bw, "Paid: %s\n", p.Money(tx.Paid()))
	fmt.Fprintf(bw, "Change: %s\n", p.Money(tx.Change()))
	fmt.Fprintln(bw, rule)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("receipt: write: %w", err)
	}
	return nil
}

// Money renders d as the currency symbol followed by a grouped two-digit
// amount, e.g. $1,234.50. Negative amounts put the sign before the symbol.
// Formatting stays in decimal arithmetic, so large amounts print exactly.
func (p *Printer) Money(d decimal.Decimal) string {
	sign := ""
	d = d.Round(2)
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	cents := fixed[strings.IndexByte(fixed, '.'):]
	return sign + p.CurrencySymbol + humanize.BigComma(d.Truncate(0).BigInt()) + cents
}
