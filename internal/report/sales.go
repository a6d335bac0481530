// Package report renders the admin sales summary as an xlsx workbook.
package report

import (
	"fmt"
	"io"

	"consigna/internal/domain"
	"consigna/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary   = "Resumen"
	sheetSuppliers = "Proveedores"
	sheetSales     = "Ventas"

	dateLayout = "2006-01-02 15:04"
)

// ContentType is the MIME type of WriteSales output
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteSales writes summary as a three-sheet workbook
func WriteSales(w io.Writer, summary *service.SalesSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	for _, name := range []string{sheetSuppliers, sheetSales} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	if err := writeSummary(f, summary); err != nil {
		return err
	}
	if err := writeSuppliers(f, summary); err != nil {
		return err
	}
	if err := writeSales(f, summary); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, s *service.SalesSummary) error {
	rows := [][]interface{}{
		{"Prendas vendidas", s.Sold},
		{"Total vendido", s.Revenue.InexactFloat64()},
		{"Costo", s.Cost.InexactFloat64()},
		{"Ganancia", s.Margin.InexactFloat64()},
		{"Pendiente de pago", s.Pending.InexactFloat64()},
		{"Pagado", s.Paid.InexactFloat64()},
		{},
		{"Forma de pago", "Cantidad", "Total"},
	}
	for _, t := range s.ByPaymentType {
		rows = append(rows, []interface{}{string(t.PaymentType), t.Count, t.Revenue.InexactFloat64()})
	}
	return setRows(f, sheetSummary, rows)
}

func writeSuppliers(f *excelize.File, s *service.SalesSummary) error {
	rows := [][]interface{}{
		{"Proveedor", "Teléfono", "Vendidas", "Total vendido", "Costo", "Ganancia", "Pendiente", "Pagado"},
	}
	for _, r := range s.BySupplier {
		rows = append(rows, []interface{}{
			r.SupplierName,
			r.Phone,
			r.Sold,
			r.Revenue.InexactFloat64(),
			r.Cost.InexactFloat64(),
			r.Margin.InexactFloat64(),
			r.Pending.InexactFloat64(),
			r.Paid.InexactFloat64(),
		})
	}
	return setRows(f, sheetSuppliers, rows)
}

func writeSales(f *excelize.File, s *service.SalesSummary) error {
	names := make(map[string]string, len(s.BySupplier))
	for _, r := range s.BySupplier {
		names[r.SupplierID] = r.SupplierName
	}

	rows := [][]interface{}{
		{"Código", "Prenda", "Talle", "Proveedor", "Precio compra", "Precio venta", "Forma de pago", "Estado de pago", "Fecha de venta"},
	}
	for _, g := range s.Garments {
		rows = append(rows, []interface{}{
			g.Code,
			g.Name,
			g.Size,
			names[supplierKey(g)],
			g.PurchasePrice.InexactFloat64(),
			g.SalePrice.InexactFloat64(),
			paymentType(g),
			string(g.PaymentStatus),
			soldAt(g),
		})
	}
	return setRows(f, sheetSales, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func supplierKey(g *domain.Garment) string {
	if g.SupplierID == nil {
		return ""
	}
	return *g.SupplierID
}

func paymentType(g *domain.Garment) string {
	if g.PaymentType == nil {
		return ""
	}
	return string(*g.PaymentType)
}

func soldAt(g *domain.Garment) string {
	if g.SoldAt == nil {
		return ""
	}
	return g.SoldAt.Format(dateLayout)
}
