package register

import (
	"fmt"

	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// State is the lifecycle phase of a Transaction.
type State int

const (
	StateStarted State = iota
	StatePaid
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "STARTED"
	case StatePaid:
		return "PAID"
	default:
		return "UNKNOWN"
	}
}

// LineItem is the accumulated quantity and unit price of one product.
type LineItem struct {
	UPC       string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Qty returns the line item quantity.
func (li LineItem) Qty() int { return li.Quantity }

// WithQuantity returns a copy of li holding qty.
func (li LineItem) WithQuantity(qty int) LineItem {
	li.Quantity = qty
	return li
}

// ExtendedPrice is UnitPrice × Quantity.
func (li LineItem) ExtendedPrice() decimal.Decimal {
	return money.Extend(li.UnitPrice, li.Quantity)
}

// Transaction is a single sale. It accepts line items while STARTED and
// becomes read-only once paid. A Transaction is not safe for concurrent use.
type Transaction struct {
	id    uuid.UUID
	state State
	items map[string]LineItem
	order []string

	// frozen by Pay
	count  int
	total  decimal.Decimal
	paid   decimal.Decimal
	change decimal.Decimal
}

// NewTransaction returns an empty STARTED transaction.
func NewTransaction() *Transaction {
	return &Transaction{
		id:     uuid.New(),
		state:  StateStarted,
		items:  make(map[string]LineItem),
		total:  money.Zero,
		paid:   money.Zero,
		change: money.Zero,
	}
}

func (t *Transaction) ID() uuid.UUID { return t.id }
func (t *Transaction) State() State  { return t.state }

// IsPaid reports whether payment was accepted. A nil transaction is not paid.
func (t *Transaction) IsPaid() bool { return t != nil && t.state == StatePaid }

// Add merges quantity units of product into the transaction. Name and price
// come from the latest product snapshot; quantity accumulates per UPC.
//
// The returned bool is false when the merged quantity exceeds the product's
// on-hand quantity. The item is added either way.
func (t *Transaction) Add(product *model.CatalogEntry, quantity int) (bool, error) {
	if t.state == StatePaid {
		return false, fmt.Errorf("%w: cannot add product to a paid transaction", ErrInvalidState)
	}
	if product == nil {
		return false, fmt.Errorf("%w: product is required", ErrInvalidArgument)
	}
	if quantity < 1 {
		return false, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, quantity)
	}
	if _, seen := t.items[product.UPC]; !seen {
		t.order = append(t.order, product.UPC)
	}
	li := model.MergeInto(t.items, product.UPC, LineItem{
		UPC:       product.UPC,
		Name:      product.Name,
		UnitPrice: product.RetailPrice,
		Quantity:  quantity,
	})
	return li.Quantity <= product.Quantity, nil
}

// Total is the sum of extended prices; after payment it is the amount
// captured by Pay.
func (t *Transaction) Total() decimal.Decimal {
	if t.state == StatePaid {
		return t.total
	}
	total := money.Zero
	for _, upc := range t.order {
		total = total.Add(t.items[upc].ExtendedPrice())
	}
	return money.Round(total)
}

// Count is the number of units in the transaction; frozen after payment.
func (t *Transaction) Count() int {
	if t.state == StatePaid {
		return t.count
	}
	n := 0
	for _, li := range t.items {
		n += li.Quantity
	}
	return n
}

// Paid is the amount tendered, zero until payment.
func (t *Transaction) Paid() decimal.Decimal { return t.paid }

// Change is tendered minus total, zero until payment.
func (t *Transaction) Change() decimal.Decimal { return t.change }

// LineItems returns a copy of the line items in the order first scanned.
func (t *Transaction) LineItems() []LineItem {
	out := make([]LineItem, 0, len(t.order))
	for _, upc := range t.order {
		out = append(out, t.items[upc])
	}
	return out
}

// Pay settles the transaction and returns the change due. An absent amount
// fails with ErrInvalidArgument. Any amount below the total, negative ones
// included, fails with ErrInsufficientFunds and leaves the transaction open.
// The comparison uses the tendered amount as given; paid and change are
// stored at money.Scale.
func (t *Transaction) Pay(tendered decimal.NullDecimal) (decimal.Decimal, error) {
	if t.state == StatePaid {
		return decimal.Decimal{}, fmt.Errorf("%w: transaction has already been paid", ErrInvalidState)
	}
	if !tendered.Valid {
		return decimal.Decimal{}, fmt.Errorf("%w: amount tendered is required", ErrInvalidArgument)
	}
	amount := tendered.Decimal
	total := t.Total()
	if amount.LessThan(total) {
		return decimal.Decimal{}, fmt.Errorf("%w: the amount of %s is insufficient to cover the total transaction cost of %s",
			ErrInsufficientFunds, amount.String(), money.Format(total))
	}
	t.count = t.Count()
	t.total = total
	t.paid = money.Round(amount)
	t.change = money.Round(amount.Sub(total))
	t.state = StatePaid
	return t.change, nil
}
