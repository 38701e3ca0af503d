package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/service"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/httputil"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
	"github.com/go-chi/chi/v5"
)

// KitchenHandler exposes the sheet rules to the host spreadsheet
type KitchenHandler struct {
	service  *service.SheetService
	location *time.Location
	logger   *logger.Logger
}

// NewKitchenHandler creates a new kitchen handler
func NewKitchenHandler(svc *service.SheetService, loc *time.Location, log *logger.Logger) *KitchenHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &KitchenHandler{
		service:  svc,
		location: loc,
		logger:   log,
	}
}

// RegisterRoutes mounts the kitchen endpoints on r
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Post("/edits", h.Edit)
	r.Post("/load", h.Load)
	r.Get("/inventory", h.Inventory)
	r.Get("/options", h.Options)
	r.Get("/batch-code", h.BatchCode)
}

// Edit applies one cell edit
func (h *KitchenHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var edit messaging.SheetEditEvent
	if err := httputil.DecodeJSON(r, &edit); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(edit); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.HandleEdit(r.Context(), edit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Load reclassifies the whole inventory sheet
func (h *KitchenHandler) Load(w http.ResponseWriter, r *http.Request) {
	styled, err := h.service.OnLoad(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.LoggerFrom(r.Context(), h.logger).Info().Int("styled", styled).Msg("inventory reclassified")
	httputil.JSON(w, http.StatusOK, map[string]int{"styled": styled})
}

// Inventory lists inventory rows
func (h *KitchenHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Inventory(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{Total: int64(len(entries))})
}

// Options resolves the channel drop-downs for a product
func (h *KitchenHandler) Options(w http.ResponseWriter, r *http.Request) {
	product := strings.TrimSpace(r.URL.Query().Get("product"))
	if product == "" {
		httputil.Error(w, errors.BadRequest("product is required"))
		return
	}

	slots, err := h.service.PreviewOptions(r.Context(), product)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, slots)
}

// BatchCode previews the batch code a new production row would get
func (h *KitchenHandler) BatchCode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	product := strings.TrimSpace(q.Get("product"))
	selection := strings.TrimSpace(q.Get("selection"))
	if product == "" || selection == "" {
		httputil.Error(w, errors.Validation(missing(map[string]string{
			"product":   product,
			"selection": selection,
		})))
		return
	}

	var date time.Time
	if raw := q.Get("date"); raw != "" {
		parsed := repository.ParseCellDate(raw, h.location)
		if parsed == nil {
			httputil.Error(w, errors.BadRequest("invalid date: "+raw))
			return
		}
		date = *parsed
	}

	preview, err := h.service.PreviewBatchCode(r.Context(), product, selection, date)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, preview)
}

func missing(params map[string]string) map[string]string {
	details := make(map[string]string)
	for name, value := range params {
		if value == "" {
			details[name] = "this field is required"
		}
	}
	return details
}
