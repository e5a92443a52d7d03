package billing

import (
	"errors"
	"fmt"
	"strings"

	"pos-backend/utils"

	"github.com/shopspring/decimal"
)

var (
	ErrNoProduct               = errors.New("please select a product")
	ErrInvalidQuantity         = errors.New("quantity must be greater than zero")
	ErrInsufficientStock       = errors.New("quantity exceeds available stock")
	ErrNegativeDiscount        = errors.New("discount cannot be negative")
	ErrDiscountExceedsSubtotal = errors.New("discount cannot exceed the line subtotal")
	ErrNoItems                 = errors.New("add at least one item to the invoice")
	ErrInsufficientCash        = errors.New("cash amount must be at least equal to the total amount")
	ErrItemIndex               = errors.New("no such item on the invoice")
	ErrQuantityTooLarge        = errors.New("quantity is too large")
	ErrAmountTooLarge          = errors.New("amount exceeds the largest storable value")

	ErrProductFieldsRequired = errors.New("product code and description are required")
	ErrInvalidPrice          = errors.New("price must be greater than zero")
	ErrNegativeStock         = errors.New("stock cannot be negative")
)

// Limits of a single line and of an invoice. Amounts are stored as
// numeric(12,2).
const MaxQuantity = 1_000_000

var MaxAmount = decimal.RequireFromString("9999999999.99")

// ValidationError wraps one of the sentinel errors above with details for the
// operator. It never reaches the store.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, format string, args ...any) *ValidationError {
	return &ValidationError{Err: err, Details: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CashError is the inline message shown next to the cash field, empty when the
// cash covers the total.
func CashError(cash, total decimal.Decimal) string {
	if cash.LessThan(total) {
		return "cash amount must be at least " + utils.Money(total)
	}
	return ""
}

// ValidateSubmission gates the commit of a draft.
func ValidateSubmission(itemCount int, cash, total decimal.Decimal) error {
	if itemCount == 0 {
		return &ValidationError{Err: ErrNoItems}
	}
	if total.GreaterThan(MaxAmount) {
		return invalid(ErrAmountTooLarge, "total %s", utils.Money(total))
	}
	if cash.LessThan(total) {
		return invalid(ErrInsufficientCash, "minimum required amount is %s", utils.Money(total))
	}
	return nil
}

// ValidateProduct applies the product form rules.
func ValidateProduct(code, description string, price decimal.Decimal, stock int) error {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(description) == "" {
		return &ValidationError{Err: ErrProductFieldsRequired}
	}
	if !price.IsPositive() {
		return &ValidationError{Err: ErrInvalidPrice}
	}
	if price.GreaterThan(MaxAmount) {
		return invalid(ErrAmountTooLarge, "price %s", utils.Money(price))
	}
	if stock < 0 {
		return &ValidationError{Err: ErrNegativeStock}
	}
	return nil
}

func validateLine(unitPrice decimal.Decimal, quantity int, discount decimal.Decimal) error {
	if quantity <= 0 {
		return &ValidationError{Err: ErrInvalidQuantity}
	}
	if quantity > MaxQuantity {
		return invalid(ErrQuantityTooLarge, "at most %d per line", MaxQuantity)
	}
	if discount.IsNegative() {
		return &ValidationError{Err: ErrNegativeDiscount}
	}
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if subtotal.GreaterThan(MaxAmount) {
		return invalid(ErrAmountTooLarge, "line subtotal %s", utils.Money(subtotal))
	}
	if discount.GreaterThan(subtotal) {
		return invalid(ErrDiscountExceedsSubtotal, "discount %s, subtotal %s", utils.Money(discount), utils.Money(subtotal))
	}
	return nil
}
