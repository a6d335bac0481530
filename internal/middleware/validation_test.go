package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"consigna/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeSupplier(t *testing.T, body map[string]interface{}) (domain.SupplierInput, error) {
	t.Helper()
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/suppliers", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	var in domain.SupplierInput
	err := DecodeAndValidate(req, &in)
	return in, err
}

// Feature: request validation, Property 1: the phone tag accepts exactly 10 or 11 digits
func TestProperty_PhoneTagMatchesDomainRule(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("phone validation agrees with domain.ValidatePhone", prop.ForAll(
		func(phone string) bool {
			_, err := decodeSupplier(t, map[string]interface{}{
				"name":    "Ana",
				"surname": "Paz",
				"phone":   phone,
			})
			return (err == nil) == (domain.ValidatePhone(phone) == nil)
		},
		gen.OneGenOf(
			gen.NumString(),
			gen.Int64Range(1000000000, 99999999999).Map(func(n int64) string {
				return strconv.FormatInt(n, 10)
			}),
			gen.AlphaString(),
		),
	))

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(withName, withSurname, withPhone bool) bool {
			body := map[string]interface{}{}
			if withName {
				body["name"] = "Ana"
			}
			if withSurname {
				body["surname"] = "Paz"
			}
			if withPhone {
				body["phone"] = "3816345678"
			}
			_, err := decodeSupplier(t, body)
			return (err == nil) == (withName && withSurname && withPhone)
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFormatValidationErrors(t *testing.T) {
	_, err := decodeSupplier(t, map[string]interface{}{
		"name":    "Ana",
		"surname": strings.Repeat("x", 101),
		"phone":   "12-34",
	})
	require.Error(t, err)

	formatted := FormatValidationErrors(err)
	require.Len(t, formatted, 2)

	messages := map[string]string{}
	for _, ve := range formatted {
		messages[ve.Field] = ve.Message
	}
	assert.Equal(t, "Value is too long", messages["surname"])
	assert.Equal(t, "Phone must have 10 or 11 digits", messages["phone"])
}

func TestGarmentSupplierMustBeUUID(t *testing.T) {
	bad := "not-a-uuid"
	err := ValidateRequest(domain.GarmentInput{SupplierID: &bad, Code: "A-1", Name: "Campera"})
	require.Error(t, err)
	assert.Equal(t, "Invalid identifier", FormatValidationErrors(err)[0].Message)

	assert.NoError(t, ValidateRequest(domain.GarmentInput{Code: "A-1", Name: "Campera"}))
}

func TestNegativePricesAreRejected(t *testing.T) {
	err := ValidateRequest(domain.GarmentInput{Code: "A-1", Name: "Campera", SalePrice: decimal.NewFromInt(-1)})
	require.Error(t, err)
	formatted := FormatValidationErrors(err)
	require.Len(t, formatted, 1)
	assert.Equal(t, "sale_price", formatted[0].Field)

	negative := decimal.RequireFromString("-0.5")
	assert.Error(t, ValidateRequest(domain.GarmentEdit{PurchasePrice: &negative}))

	zero := decimal.Zero
	assert.NoError(t, ValidateRequest(domain.GarmentEdit{PurchasePrice: &zero}))
	assert.NoError(t, ValidateRequest(domain.GarmentInput{Code: "A-1", Name: "Campera", SalePrice: decimal.NewFromInt(2500)}))
}

func TestFormatValidationErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FormatValidationErrors(errors.New("unexpected EOF")))
}
