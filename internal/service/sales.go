package service

import (
	"sort"

	"consigna/internal/domain"

	"github.com/shopspring/decimal"
)

const unassignedSupplier = "Sin proveedor"

// SupplierSales totals the sold garments of one supplier. Owed amounts are
// purchase prices, which is what the supplier receives.
type SupplierSales struct {
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Phone        string          `json:"phone,omitempty"`
	Sold         int             `json:"sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Margin       decimal.Decimal `json:"margin"`
	Pending      decimal.Decimal `json:"pending"`
	Paid         decimal.Decimal `json:"paid"`
}

// PaymentTypeSales totals sales per payment type
type PaymentTypeSales struct {
	PaymentType domain.PaymentType `json:"payment_type"`
	Count       int                `json:"count"`
	Revenue     decimal.Decimal    `json:"revenue"`
}

// SalesSummary is the admin sales view
type SalesSummary struct {
	Sold          int                `json:"sold"`
	Revenue       decimal.Decimal    `json:"revenue"`
	Cost          decimal.Decimal    `json:"cost"`
	Margin        decimal.Decimal    `json:"margin"`
	Pending       decimal.Decimal    `json:"pending"`
	Paid          decimal.Decimal    `json:"paid"`
	BySupplier    []SupplierSales    `json:"by_supplier"`
	ByPaymentType []PaymentTypeSales `json:"by_payment_type"`
	Garments      []*domain.Garment  `json:"garments"`
}

// Summarize aggregates the sold garments. Suppliers are sorted by name with
// unassigned garments last; payment types follow domain.PaymentTypes.
func Summarize(suppliers []*domain.Supplier, garments []*domain.Garment) *SalesSummary {
	summary := &SalesSummary{Garments: []*domain.Garment{}}

	byID := make(map[string]*domain.Supplier, len(suppliers))
	for _, s := range suppliers {
		byID[s.ID] = s
	}

	perSupplier := map[string]*SupplierSales{}
	perType := map[domain.PaymentType]*PaymentTypeSales{}
	for _, pt := range domain.PaymentTypes {
		perType[pt] = &PaymentTypeSales{PaymentType: pt}
	}

	for _, g := range garments {
		if !g.IsSold {
			continue
		}
		summary.Garments = append(summary.Garments, g)
		summary.Sold++
		summary.Revenue = summary.Revenue.Add(g.SalePrice)
		summary.Cost = summary.Cost.Add(g.PurchasePrice)

		key := ""
		if g.SupplierID != nil {
			key = *g.SupplierID
		}
		row, ok := perSupplier[key]
		if !ok {
			row = &SupplierSales{SupplierID: key, SupplierName: unassignedSupplier}
			if s, found := byID[key]; found {
				row.SupplierName = s.FullName()
				row.Phone = s.Phone
			}
			perSupplier[key] = row
		}
		row.Sold++
		row.Revenue = row.Revenue.Add(g.SalePrice)
		row.Cost = row.Cost.Add(g.PurchasePrice)

		switch g.PaymentStatus {
		case domain.PaymentPaid:
			row.Paid = row.Paid.Add(g.PurchasePrice)
			summary.Paid = summary.Paid.Add(g.PurchasePrice)
		case domain.PaymentPending:
			row.Pending = row.Pending.Add(g.PurchasePrice)
			summary.Pending = summary.Pending.Add(g.PurchasePrice)
		}

		if g.PaymentType != nil {
			if t, ok := perType[*g.PaymentType]; ok {
				t.Count++
				t.Revenue = t.Revenue.Add(g.SalePrice)
			}
		}
	}
	summary.Margin = summary.Revenue.Sub(summary.Cost)

	summary.BySupplier = make([]SupplierSales, 0, len(perSupplier))
	for _, row := range perSupplier {
		row.Margin = row.Revenue.Sub(row.Cost)
		summary.BySupplier = append(summary.BySupplier, *row)
	}
	sort.Slice(summary.BySupplier, func(i, j int) bool {
		a, b := summary.BySupplier[i], summary.BySupplier[j]
		if (a.SupplierID == "") != (b.SupplierID == "") {
			return b.SupplierID == ""
		}
		if a.SupplierName != b.SupplierName {
			return a.SupplierName < b.SupplierName
		}
		return a.SupplierID < b.SupplierID
	})

	summary.ByPaymentType = make([]PaymentTypeSales, 0, len(domain.PaymentTypes))
	for _, pt := range domain.PaymentTypes {
		summary.ByPaymentType = append(summary.ByPaymentType, *perType[pt])
	}

	return summary
}
