package handler

import (
	"encoding/json"
	"net/http"

	"smartpark/internal/parking/service"
	apperrors "smartpark/pkg/errors"
	httputil "smartpark/pkg/http"
	"smartpark/pkg/logger"
	"smartpark/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ParkingHandler struct {
	service service.ParkingService
	log     *logger.Logger
}

func NewParkingHandler(service service.ParkingService, log *logger.Logger) *ParkingHandler {
	return &ParkingHandler{
		service: service,
		log:     log,
	}
}

func (h *ParkingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/checkins", h.CheckIn)
	router.POST("/api/v1/prebookings", h.PreBook)
	router.GET("/api/v1/bookings/:vehicle", h.GetBooking)
	router.DELETE("/api/v1/bookings/:vehicle", h.CheckOut)
	router.GET("/api/v1/slots", h.ListSlots)
	router.GET("/api/v1/slots/:id", h.GetSlot)
	router.GET("/api/v1/history/:vehicle", h.History)
}

func (h *ParkingHandler) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CheckInRequest
	if !h.decode(w, r, &req, "CheckIn") {
		return
	}

	booking, err := h.service.CheckIn(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "CheckIn")
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "CheckIn", "operation", "WriteCreated", "error", err)
	}
}

func (h *ParkingHandler) PreBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.PreBookingRequest
	if !h.decode(w, r, &req, "PreBook") {
		return
	}

	booking, err := h.service.PreBook(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "PreBook")
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "PreBook", "operation", "WriteCreated", "error", err)
	}
}

func (h *ParkingHandler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetBooking(r.Context(), ps.ByName("vehicle"))
	if err != nil {
		h.writeError(w, err, "GetBooking")
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ParkingHandler) CheckOut(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	out, err := h.service.CheckOut(r.Context(), ps.ByName("vehicle"))
	if err != nil {
		h.writeError(w, err, "CheckOut")
		return
	}

	if err := httputil.WriteSuccess(w, out); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckOut", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ParkingHandler) ListSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	grid, err := h.service.ListSlots(r.Context())
	if err != nil {
		h.writeError(w, err, "ListSlots")
		return
	}

	if err := httputil.WriteSuccess(w, grid); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ParkingHandler) GetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.GetSlot(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, err, "GetSlot")
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSlot", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ParkingHandler) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, err, "History")
		return
	}

	records, total, err := h.service.History(r.Context(), ps.ByName("vehicle"), limit, offset)
	if err != nil {
		h.writeError(w, err, "History")
		return
	}

	if err := httputil.WritePaginated(w, records, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "History", "operation", "WritePaginated", "error", err)
	}
}

func (h *ParkingHandler) decode(w http.ResponseWriter, r *http.Request, dst any, name string) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.writeError(w, apperrors.InvalidInput("Invalid request body"), name)
		return false
	}
	return true
}

func (h *ParkingHandler) writeError(w http.ResponseWriter, err error, name string) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}
