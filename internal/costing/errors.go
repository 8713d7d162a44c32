package costing

import "errors"

var (
	ErrInvalidQuantity       = errors.New("costing: quantity must be greater than zero")
	ErrInvalidIngredientData = errors.New("costing: invalid ingredient data")
	ErrInvalidLossFactor     = errors.New("costing: loss factor must be between 0 and 100 (exclusive)")
	ErrInvalidSellingPrice   = errors.New("costing: selling price must be greater than zero")
	ErrDanglingReference     = errors.New("costing: item references a missing record")
	ErrConcurrentEdit        = errors.New("costing: record was modified by another edit")
)

// IsValidation reports whether err is an input validation failure, as
// opposed to a dangling reference or a storage error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidIngredientData) ||
		errors.Is(err, ErrInvalidLossFactor) ||
		errors.Is(err, ErrInvalidSellingPrice)
}
