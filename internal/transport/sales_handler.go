package transport

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"consigna/internal/middleware"
	"consigna/internal/report"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SalesHandler serves the admin sales views
type SalesHandler struct {
	logger *zap.Logger
}

// NewSalesHandler creates a new SalesHandler
func NewSalesHandler(logger *zap.Logger) *SalesHandler {
	return &SalesHandler{logger: logger}
}

// RegisterRoutes registers the admin routes; requireAdmin runs after protected
func (h *SalesHandler) RegisterRoutes(r chi.Router, requireAdmin func(http.Handler) http.Handler, protected ...func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(protected...)
		r.Use(requireAdmin)
		r.Get("/sales", h.Summary)
		r.Get("/sales/export", h.Export)
	})
}

func (h *SalesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, inv.SalesSummary())
}

// Export downloads the sales summary as an xlsx workbook
func (h *SalesHandler) Export(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteSales(&buf, inv.SalesSummary()); err != nil {
		h.logger.Error("Failed to build sales workbook", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to export sales")
		return
	}

	filename := fmt.Sprintf("ventas-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
