package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/common"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

// Handlers exposes the tracking and shipment HTTP API.
type Handlers struct {
	Svc      *Service
	Tracker  Tracker
	Idem     *common.Idem
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// NewHandlers wires a handler set with a shared validator. idem guards
// shipment creation against client retries; nil disables the guard.
func NewHandlers(svc *Service, tracker Tracker, idem *common.Idem, logger zerolog.Logger) *Handlers {
	return &Handlers{
		Svc:      svc,
		Tracker:  tracker,
		Idem:     idem,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		Logger:   logger,
	}
}

// Register mounts all registry routes onto r.
func (h *Handlers) Register(r chi.Router) {
	r.Post("/v1/track", h.Track)
	r.Route("/v1/shipments", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stats", h.Stats)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/refresh", h.Refresh)
			r.Put("/product", h.LinkProduct)
		})
	})
}

type trackRequest struct {
	Identifier   string `json:"identifier" validate:"required,min=4,max=64"`
	Type         string `json:"type" validate:"omitempty,oneof=container awb bl parcel auto"`
	ForceRefresh bool   `json:"forceRefresh"`
}

// Track performs a stateless lookup without touching the registry.
func (h *Handlers) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !h.decode(w, r, &req) {
		return
	}
	lookup := h.Tracker.Track(r.Context(), tracking.Query{
		Identifier:   req.Identifier,
		Type:         tracking.Type(req.Type),
		ForceRefresh: req.ForceRefresh,
	})
	common.JSON(w, http.StatusOK, map[string]any{
		"data":   lookup.Result,
		"source": lookup.Source,
	})
}

type createRequest struct {
	TrackingNumber string `json:"trackingNumber" validate:"required,min=4,max=64"`
	Type           string `json:"type" validate:"omitempty,oneof=container awb bl parcel auto"`
	ProductID      string `json:"productId" validate:"omitempty,uuid4"`
	ProductName    string `json:"productName" validate:"omitempty,max=200"`
	Notes          string `json:"notes" validate:"omitempty,max=2000"`
}

// Create registers a new shipment. Retried requests carrying the same
// Idempotency-Key are rejected while the claim is held.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		first, err := h.Idem.Claim(r.Context(), "create:"+key)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("idempotency claim unavailable")
		} else if !first {
			common.JSONError(w, http.StatusConflict, "duplicate_request", "request with this idempotency key was already accepted", nil)
			return
		}
	}
	in := CreateInput{
		TrackingNumber: req.TrackingNumber,
		Type:           tracking.Type(req.Type),
		ProductName:    req.ProductName,
		Notes:          req.Notes,
	}
	if req.ProductID != "" {
		id, err := uuid.Parse(req.ProductID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "invalid_product_id", "productId must be a UUID", nil)
			return
		}
		in.ProductID = &id
	}
	sh, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, sh)
}

// List returns a filtered page of shipments.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := common.ParsePagination(r)
	f := ListFilter{
		Search:   r.URL.Query().Get("q"),
		Status:   tracking.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
		Type:     tracking.Type(strings.TrimSpace(r.URL.Query().Get("type"))),
		Page:     page,
		PageSize: pageSize,
	}
	items, total, err := h.Svc.List(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONList(w, http.StatusOK, items, common.Pagination{Page: page, PageSize: pageSize, Total: total})
}

// Get returns one shipment with its timeline.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sh, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sh)
}

// Refresh forces a re-enrichment of one shipment.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	force := common.ParseBoolDefault(r.URL.Query().Get("force"), true)
	sh, err := h.Svc.Refresh(r.Context(), id, force)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sh)
}

// Delete removes a shipment from the registry.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkProductRequest struct {
	ProductID   string `json:"productId" validate:"omitempty,uuid4"`
	ProductName string `json:"productName" validate:"omitempty,max=200"`
}

// LinkProduct attaches or clears the product association of a shipment.
func (h *Handlers) LinkProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req linkProductRequest
	if !h.decode(w, r, &req) {
		return
	}
	var productID *uuid.UUID
	if req.ProductID != "" {
		parsed, err := uuid.Parse(req.ProductID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "invalid_product_id", "productId must be a UUID", nil)
			return
		}
		productID = &parsed
	}
	sh, err := h.Svc.LinkProduct(r.Context(), id, productID, req.ProductName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sh)
}

// Stats returns dashboard counters.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.QueryStats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, stats)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON", nil)
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		details := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		common.JSONError(w, http.StatusBadRequest, "validation_failed", "request validation failed", details)
		return false
	}
	return true
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "not_found", "shipment not found", nil)
	case errors.Is(err, ErrDuplicate):
		common.JSONError(w, http.StatusConflict, "duplicate_tracking_number", "tracking number already registered", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "invalid_input", "request carries unusable fields", nil)
	default:
		h.Logger.Error().Err(err).Msg("registry request failed")
		common.JSONError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}
