package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidPhone        = fmt.Errorf("%w: phone must have 10 or 11 digits", ErrInvalidInput)
	ErrInvalidPaymentType  = fmt.Errorf("%w: unknown payment type", ErrInvalidInput)
	ErrSupplierNotFound    = errors.New("supplier not found")
	ErrGarmentNotFound     = errors.New("garment not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrSupplierHasGarments = errors.New("supplier has garments and cannot be deleted")
)
