package transport

import (
	"errors"
	"net/http"
	"strconv"

	"consigna/internal/auth"
	"consigna/internal/domain"
	"consigna/internal/middleware"
	"consigna/internal/repository"
	"consigna/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPageSize = 200

// ListResponse is one page of an in-memory collection
type ListResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// MessageResponse acknowledges a write whose result arrives through a re-fetch
type MessageResponse struct {
	Message string `json:"message"`
}

// paginate slices items by the page and page_size query parameters. Without
// page_size the whole collection is one page.
func paginate[T any](r *http.Request, items []T) (ListResponse[T], error) {
	page, size := 1, len(items)

	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return ListResponse[T]{}, errors.New("page must be a positive integer")
		}
		page = n
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			return ListResponse[T]{}, errors.New("page_size must be between 1 and " + strconv.Itoa(maxPageSize))
		}
		size = n
	}

	resp := ListResponse[T]{Items: []T{}, Total: len(items), Page: page, PageSize: size}
	// pages past the end are empty; checked before multiplying so page*size cannot overflow
	if size == 0 || page-1 >= (len(items)+size-1)/size {
		return resp, nil
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	resp.Items = items[start:end]
	return resp, nil
}

func respondWithList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	resp, err := paginate(r, items)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

// respondWithDomainError maps inventory and auth errors to status codes
func respondWithDomainError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrIdentityUnresolved):
		middleware.RespondWithError(w, http.StatusForbidden, "could not resolve the signed-in user")
	case errors.Is(err, domain.ErrSupplierHasGarments):
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSupplierNotFound), errors.Is(err, domain.ErrGarmentNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrEmailTaken):
		middleware.RespondWithError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrUnsupportedProvider):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrInvalidOAuthState):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// respondWithDecodeError answers a failed DecodeAndValidate
func respondWithDecodeError(w http.ResponseWriter, err error) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

// inventoryFrom returns the session inventory set by InventoryMiddleware
func inventoryFrom(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (*service.Inventory, bool) {
	inv, ok := middleware.GetInventory(r.Context())
	if !ok {
		logger.Error("Inventory not found in context")
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return inv, true
}

// idParam reads and checks the {id} URL parameter
func idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return id, true
}
