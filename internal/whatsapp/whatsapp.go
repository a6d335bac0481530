// Package whatsapp builds wa.me deep links and sends sale notifications
// through them. Delivery is best effort: nothing is confirmed or retried.
package whatsapp

import (
	"fmt"
	"net/url"

	"consigna/internal/alert"
	"consigna/internal/domain"
	"consigna/internal/metrics"

	"go.uber.org/zap"
)

const baseURL = "https://wa.me/"

// Link returns https://wa.me/<countryCode><digits>?text=<message>
func Link(countryCode, phone, message string) string {
	number := domain.DigitsOnly(countryCode) + domain.DigitsOnly(phone)
	return baseURL + number + "?text=" + url.QueryEscape(message)
}

// SaleMessage is the text sent to a supplier when one of their garments sells
func SaleMessage(supplier *domain.Supplier, garment *domain.Garment) string {
	msg := fmt.Sprintf("Hola %s! Se vendió tu prenda %s (código %s) por $%s.",
		supplier.Name, garment.Name, garment.Code, garment.SalePrice.StringFixed(2))
	if garment.PaymentType != nil {
		msg += fmt.Sprintf(" Forma de pago: %s.", *garment.PaymentType)
	}
	return msg
}

// Opener hands a link to whatever opens it
type Opener interface {
	Open(link string) error
}

// AlertOpener pushes an open_link alert the browser opens in a new tab
type AlertOpener struct {
	Alerts alert.Notifier
}

func (o AlertOpener) Open(link string) error {
	o.Alerts.OpenLink("Notificar venta al proveedor", link)
	return nil
}

// SaleNotifier tells suppliers about their sales
type SaleNotifier interface {
	NotifySale(supplier *domain.Supplier, garment *domain.Garment)
}

type saleNotifier struct {
	countryCode string
	opener      Opener
	logger      *zap.Logger
}

// NewSaleNotifier creates a notifier that opens wa.me links through opener
func NewSaleNotifier(countryCode string, opener Opener, logger *zap.Logger) SaleNotifier {
	return &saleNotifier{countryCode: countryCode, opener: opener, logger: logger}
}

// NotifySale opens the sale link; failures are only logged
func (n *saleNotifier) NotifySale(supplier *domain.Supplier, garment *domain.Garment) {
	link := Link(n.countryCode, supplier.Phone, SaleMessage(supplier, garment))

	if err := n.opener.Open(link); err != nil {
		metrics.SaleNotificationsTotal.WithLabelValues("error").Inc()
		n.logger.Warn("Failed to open sale notification",
			zap.String("supplier_id", supplier.ID),
			zap.String("garment_id", garment.ID),
			zap.Error(err),
		)
		return
	}

	metrics.SaleNotificationsTotal.WithLabelValues("sent").Inc()
	n.logger.Info("Sale notification opened",
		zap.String("supplier_id", supplier.ID),
		zap.String("garment_id", garment.ID),
	)
}
