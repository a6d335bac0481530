package domain

import (
	"regexp"
	"strings"
	"time"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

// Supplier represents a person who consigns garments
type Supplier struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Surname   string    `json:"surname" db:"surname"`
	Phone     string    `json:"phone" db:"phone"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FullName returns "Name Surname"
func (s *Supplier) FullName() string {
	return strings.TrimSpace(s.Name + " " + s.Surname)
}

// SupplierInput holds the user-provided fields of a new supplier
type SupplierInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Surname string `json:"surname" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"required,phone"`
}

// Validate checks the input before it reaches the store
func (in SupplierInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Surname) == "" {
		return ErrInvalidInput
	}
	return ValidatePhone(in.Phone)
}

// SupplierPatch lists the supplier fields that may be edited.
// Nil fields are left untouched.
type SupplierPatch struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Surname *string `json:"surname,omitempty" validate:"omitempty,min=1,max=100"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,phone"`
}

// Validate re-checks the phone when it is being changed
func (p SupplierPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return ErrInvalidInput
	}
	if p.Surname != nil && strings.TrimSpace(*p.Surname) == "" {
		return ErrInvalidInput
	}
	if p.Phone != nil {
		return ValidatePhone(*p.Phone)
	}
	return nil
}

// Empty reports whether the patch changes nothing
func (p SupplierPatch) Empty() bool {
	return p.Name == nil && p.Surname == nil && p.Phone == nil
}

// ValidatePhone accepts exactly 10 or 11 digits and nothing else
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// DigitsOnly strips every non-digit rune from s
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
