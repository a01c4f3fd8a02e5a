package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/home-scheduler/internal/remote"
)

type houseService interface {
	ListHouses(ctx context.Context) ([]remote.House, error)
	ListDevices(ctx context.Context, houseID int64) ([]remote.Device, error)
}

// HouseHandler proxies the house catalog of the remote API.
type HouseHandler struct {
	service   houseService
	responder responder
	logger    *slog.Logger
}

func NewHouseHandler(service houseService, logger *slog.Logger) *HouseHandler {
	base := defaultLogger(logger)
	return &HouseHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *HouseHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "HouseHandler", operation, attrs...)
}

func (h *HouseHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	houses, err := h.service.ListHouses(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]houseDTO, 0, len(houses))
	for _, house := range houses {
		out = append(out, houseDTO{ID: house.ID, Name: house.Name, Owner: house.Owner})
	}
	h.log(r.Context(), "List").With("result_count", len(out)).DebugContext(r.Context(), "houses listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listHousesResponse{Houses: out})
}

func (h *HouseHandler) Devices(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	houseID, ok := HouseIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidHouseID)
		return
	}

	devices, err := h.service.ListDevices(r.Context(), houseID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]deviceDTO, 0, len(devices))
	for _, device := range devices {
		out = append(out, deviceDTO{
			ID:                device.ID,
			Type:              device.Type,
			AvailableCommands: append([]string{}, device.AvailableCommands...),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listDevicesResponse{HouseID: houseID, Devices: out})
}

type houseDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

type listHousesResponse struct {
	Houses []houseDTO `json:"houses"`
}

type deviceDTO struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	AvailableCommands []string `json:"available_commands"`
}

type listDevicesResponse struct {
	HouseID int64       `json:"house_id"`
	Devices []deviceDTO `json:"devices"`
}
