package report

import (
	"bytes"
	"testing"
	"time"

	"consigna/internal/domain"
	"consigna/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteSales(t *testing.T) {
	supplierID := "s1"
	paymentType := domain.PaymentQR
	soldAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	summary := service.Summarize(
		[]*domain.Supplier{{ID: supplierID, Name: "Ana", Surname: "Paz", Phone: "3816345678"}},
		[]*domain.Garment{{
			ID:            "g1",
			SupplierID:    &supplierID,
			Code:          "A-1",
			Name:          "Campera",
			Size:          "M",
			PurchasePrice: decimal.RequireFromString("1000.50"),
			SalePrice:     decimal.RequireFromString("2500"),
			IsSold:        true,
			PaymentStatus: domain.PaymentPending,
			PaymentType:   &paymentType,
			SoldAt:        &soldAt,
		}},
	)

	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, summary))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetSummary, sheetSuppliers, sheetSales}, f.GetSheetList())

	rows, err := f.GetRows(sheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Prendas vendidas", "1"}, rows[0])
	assert.Equal(t, []string{"Total vendido", "2500"}, rows[1])

	rows, err = f.GetRows(sheetSuppliers)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana Paz", rows[1][0])
	assert.Equal(t, "3816345678", rows[1][1])

	rows, err = f.GetRows(sheetSales)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A-1", "Campera", "M", "Ana Paz", "1000.5", "2500", "qr", "pending", "2026-03-14 10:30"}, rows[1])
}

func TestWriteSalesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, service.Summarize(nil, nil)))
	assert.NotZero(t, buf.Len())
}
