package transport

import (
	"net/http"

	"consigna/internal/domain"
	"consigna/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SellRequest is the payload of POST /api/garments/{id}/sell
type SellRequest struct {
	PaymentType domain.PaymentType `json:"payment_type" validate:"required,oneof=efectivo qr debito credito"`
}

// InventoryHandler serves the session's supplier and garment collections
type InventoryHandler struct {
	logger *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{logger: logger}
}

// RegisterRoutes registers the supplier, garment and alert routes behind the
// given middleware
func (h *InventoryHandler) RegisterRoutes(r chi.Router, protected ...func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(protected...)

		r.Route("/api/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
			r.Patch("/{id}", h.UpdateSupplier)
			r.Delete("/{id}", h.DeleteSupplier)
			r.Get("/{id}/garments", h.ListSupplierGarments)
		})

		r.Route("/api/garments", func(r chi.Router) {
			r.Get("/", h.ListGarments)
			r.Post("/", h.CreateGarment)
			r.Get("/sold", h.ListSoldGarments)
			r.Patch("/{id}", h.UpdateGarment)
			r.Delete("/{id}", h.DeleteGarment)
			r.Post("/{id}/sell", h.SellGarment)
			r.Post("/{id}/pay", h.PayGarment)
		})

		r.Get("/api/alerts", h.DrainAlerts)
	})
}

func (h *InventoryHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	respondWithList(w, r, inv.Suppliers())
}

// CreateSupplier adds a supplier and answers with the inserted row
func (h *InventoryHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}

	var req domain.SupplierInput
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	created, err := inv.AddSupplier(r.Context(), req)
	if err != nil {
		respondWithDomainError(w, h.logger, err, "failed to create supplier")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *InventoryHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req domain.SupplierPatch
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	if err := inv.EditSupplier(r.Context(), id, req); err != nil {
		respondWithDomainError(w, h.logger, err, "failed to update supplier")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "supplier updated"})
}

func (h *InventoryHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := inv.DeleteSupplier(r.Context(), id); err != nil {
		respondWithDomainError(w, h.logger, err, "failed to delete supplier")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "supplier deleted"})
}

func (h *InventoryHandler) ListSupplierGarments(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	respondWithList(w, r, inv.GarmentsBySupplier(id))
}

func (h *InventoryHandler) ListGarments(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	respondWithList(w, r, inv.Garments())
}

func (h *InventoryHandler) ListSoldGarments(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	respondWithList(w, r, inv.AllSoldGarments())
}

// CreateGarment adds a garment and answers with the inserted row
func (h *InventoryHandler) CreateGarment(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}

	var req domain.GarmentInput
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	created, err := inv.AddGarment(r.Context(), req)
	if err != nil {
		respondWithDomainError(w, h.logger, err, "failed to create garment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *InventoryHandler) UpdateGarment(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req domain.GarmentEdit
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	if err := inv.EditGarment(r.Context(), id, req); err != nil {
		respondWithDomainError(w, h.logger, err, "failed to update garment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "garment updated"})
}

func (h *InventoryHandler) DeleteGarment(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := inv.DeleteGarment(r.Context(), id); err != nil {
		respondWithDomainError(w, h.logger, err, "failed to delete garment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "garment deleted"})
}

// SellGarment records a sale. The WhatsApp link, when one could be built,
// arrives as an open_link alert.
func (h *InventoryHandler) SellGarment(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req SellRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, err)
		return
	}

	if err := inv.MarkAsSold(r.Context(), id, req.PaymentType); err != nil {
		respondWithDomainError(w, h.logger, err, "failed to record sale")
		return
	}
	h.respondWithGarment(w, inv.Garments(), id, "garment sold")
}

func (h *InventoryHandler) PayGarment(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := inv.MarkAsPaid(r.Context(), id); err != nil {
		respondWithDomainError(w, h.logger, err, "failed to record payment")
		return
	}
	h.respondWithGarment(w, inv.Garments(), id, "garment paid")
}

// DrainAlerts returns and clears the session's pending alerts
func (h *InventoryHandler) DrainAlerts(w http.ResponseWriter, r *http.Request) {
	inv, ok := inventoryFrom(w, r, h.logger)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, inv.Alerts().Drain())
}

// respondWithGarment answers with the local row, or a message when the row
// is not in the collection yet
func (h *InventoryHandler) respondWithGarment(w http.ResponseWriter, garments []*domain.Garment, id, message string) {
	for _, g := range garments {
		if g.ID == id {
			middleware.RespondWithJSON(w, http.StatusOK, g)
			return
		}
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: message})
}
