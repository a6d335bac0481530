package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks what the supplier has been paid for a garment
type PaymentStatus string

const (
	PaymentNotAvailable PaymentStatus = "not_available"
	PaymentPending      PaymentStatus = "pending"
	PaymentPaid         PaymentStatus = "paid"
)

// PaymentType is how the buyer paid for a garment
type PaymentType string

const (
	PaymentCash   PaymentType = "efectivo"
	PaymentQR     PaymentType = "qr"
	PaymentDebit  PaymentType = "debito"
	PaymentCredit PaymentType = "credito"
)

// PaymentTypes lists every accepted payment type in display order
var PaymentTypes = []PaymentType{PaymentCash, PaymentQR, PaymentDebit, PaymentCredit}

// Valid reports whether t is one of PaymentTypes
func (t PaymentType) Valid() bool {
	for _, known := range PaymentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParsePaymentType validates a raw payment type
func ParsePaymentType(s string) (PaymentType, error) {
	t := PaymentType(s)
	if !t.Valid() {
		return "", ErrInvalidPaymentType
	}
	return t, nil
}

// Garment represents a single consigned item
type Garment struct {
	ID            string          `json:"id" db:"id"`
	SupplierID    *string         `json:"supplier_id" db:"supplier_id"`
	UserID        string          `json:"user_id" db:"user_id"`
	Code          string          `json:"code" db:"code"`
	Name          string          `json:"name" db:"name"`
	Size          string          `json:"size" db:"size"`
	PurchasePrice decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price" db:"sale_price"`
	IsSold        bool            `json:"is_sold" db:"is_sold"`
	PaymentStatus PaymentStatus   `json:"payment_status" db:"payment_status"`
	PaymentType   *PaymentType    `json:"payment_type" db:"payment_type"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	SoldAt        *time.Time      `json:"sold_at" db:"sold_at"`
}

// BelongsTo reports whether the garment references supplierID
func (g *Garment) BelongsTo(supplierID string) bool {
	return g.SupplierID != nil && *g.SupplierID == supplierID
}

// Clone returns a deep copy so callers can't mutate shared rows
func (g *Garment) Clone() *Garment {
	c := *g
	if g.SupplierID != nil {
		id := *g.SupplierID
		c.SupplierID = &id
	}
	if g.PaymentType != nil {
		t := *g.PaymentType
		c.PaymentType = &t
	}
	if g.SoldAt != nil {
		at := *g.SoldAt
		c.SoldAt = &at
	}
	return &c
}

// GarmentInput holds the user-provided fields of a new garment
type GarmentInput struct {
	SupplierID    *string         `json:"supplier_id" validate:"omitempty,uuid"`
	Code          string          `json:"code" validate:"required,max=50"`
	Name          string          `json:"name" validate:"required,max=200"`
	Size          string          `json:"size" validate:"max=20"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"gte=0"`
	SalePrice     decimal.Decimal `json:"sale_price" validate:"gte=0"`
}

// Validate checks required fields and price signs
func (in GarmentInput) Validate() error {
	if in.Code == "" || in.Name == "" {
		return ErrInvalidInput
	}
	if in.PurchasePrice.IsNegative() || in.SalePrice.IsNegative() {
		return ErrInvalidInput
	}
	return nil
}

// GarmentEdit is the allow-listed set of garment fields editable by users.
// Sale and payment fields can only change through MarkAsSold/MarkAsPaid.
type GarmentEdit struct {
	Code          *string          `json:"code,omitempty" validate:"omitempty,min=1,max=50"`
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Size          *string          `json:"size,omitempty" validate:"omitempty,max=20"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty" validate:"omitempty,gte=0"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty" validate:"omitempty,gte=0"`
}

// Validate rejects negative prices and blank required fields
func (e GarmentEdit) Validate() error {
	if e.Code != nil && *e.Code == "" {
		return ErrInvalidInput
	}
	if e.Name != nil && *e.Name == "" {
		return ErrInvalidInput
	}
	if e.PurchasePrice != nil && e.PurchasePrice.IsNegative() {
		return ErrInvalidInput
	}
	if e.SalePrice != nil && e.SalePrice.IsNegative() {
		return ErrInvalidInput
	}
	return nil
}

// Patch converts the edit into a store-level patch
func (e GarmentEdit) Patch() GarmentPatch {
	return GarmentPatch{
		Code:          e.Code,
		Name:          e.Name,
		Size:          e.Size,
		PurchasePrice: e.PurchasePrice,
		SalePrice:     e.SalePrice,
	}
}

// GarmentPatch is the full set of columns an update may touch.
// Nil fields are left untouched.
type GarmentPatch struct {
	Code          *string
	Name          *string
	Size          *string
	PurchasePrice *decimal.Decimal
	SalePrice     *decimal.Decimal
	IsSold        *bool
	PaymentStatus *PaymentStatus
	PaymentType   *PaymentType
	SoldAt        *time.Time
}

// Empty reports whether the patch changes nothing
func (p GarmentPatch) Empty() bool {
	return p.Code == nil && p.Name == nil && p.Size == nil &&
		p.PurchasePrice == nil && p.SalePrice == nil && p.IsSold == nil &&
		p.PaymentStatus == nil && p.PaymentType == nil && p.SoldAt == nil
}

// Apply returns a copy of g with the patch applied
func (p GarmentPatch) Apply(g *Garment) *Garment {
	c := g.Clone()
	if p.Code != nil {
		c.Code = *p.Code
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Size != nil {
		c.Size = *p.Size
	}
	if p.PurchasePrice != nil {
		c.PurchasePrice = *p.PurchasePrice
	}
	if p.SalePrice != nil {
		c.SalePrice = *p.SalePrice
	}
	if p.IsSold != nil {
		c.IsSold = *p.IsSold
	}
	if p.PaymentStatus != nil {
		c.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentType != nil {
		t := *p.PaymentType
		c.PaymentType = &t
	}
	if p.SoldAt != nil {
		at := *p.SoldAt
		c.SoldAt = &at
	}
	return c
}

// SalePatch sets every field a sale changes, in one update
func SalePatch(paymentType PaymentType, at time.Time) GarmentPatch {
	sold := true
	status := PaymentPending
	return GarmentPatch{
		IsSold:        &sold,
		PaymentStatus: &status,
		PaymentType:   &paymentType,
		SoldAt:        &at,
	}
}

// PaidPatch marks the supplier as paid
func PaidPatch() GarmentPatch {
	status := PaymentPaid
	return GarmentPatch{PaymentStatus: &status}
}
