package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hiromu1018ks/official-car-app/internal/model"
	"github.com/hiromu1018ks/official-car-app/internal/repository"
)

// VehicleHandler serves the read-only fleet views: the vehicle list, the
// status breakdown, the in-use detail and the driving-log dashboard
// counters.  None of these endpoints mutate state, so they run outside a
// transaction and are safe to put behind the response cache.
type VehicleHandler struct {
	VehicleRepo    *repository.VehicleRepo
	DrivingLogRepo *repository.DrivingLogRepo
}

// NewVehicleHandler constructs a VehicleHandler. Both repositories must be
// non-nil.
func NewVehicleHandler(vehicleRepo *repository.VehicleRepo, drivingLogRepo *repository.DrivingLogRepo) *VehicleHandler {
	if vehicleRepo == nil || drivingLogRepo == nil {
		panic("nil repository passed to NewVehicleHandler")
	}
	return &VehicleHandler{VehicleRepo: vehicleRepo, DrivingLogRepo: drivingLogRepo}
}

// vehicleResponse is the wire shape of a vehicle row.
type vehicleResponse struct {
	ID             string `json:"id"`
	LicensePlate   string `json:"license_plate"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Year           int    `json:"year"`
	Status         string `json:"status"`
	NextInspection string `json:"next_inspection"`
	Icon           string `json:"icon"`
	IconColorFrom  string `json:"icon_color_from"`
	IconColorTo    string `json:"icon_color_to"`
}

func toVehicleResponse(v model.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:             v.ID,
		LicensePlate:   v.LicensePlate,
		Make:           v.Make,
		Model:          v.Model,
		Year:           v.Year,
		Status:         string(v.Status),
		NextInspection: v.NextInspection.UTC().Format(time.RFC3339),
		Icon:           v.Icon,
		IconColorFrom:  v.IconColorFrom,
		IconColorTo:    v.IconColorTo,
	}
}

// List handles GET /v1/vehicles and returns every vehicle ordered by
// license plate.
func (h *VehicleHandler) List(c echo.Context) error {
	vehicles, err := h.VehicleRepo.List(c.Request().Context())
	if err != nil {
		log.Printf("vehicle list: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load vehicles"})
	}
	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleResponse(v))
	}
	return c.JSON(http.StatusOK, out)
}

// Stats handles GET /v1/vehicles/stats and returns the fleet-wide count
// per status plus the total.
func (h *VehicleHandler) Stats(c echo.Context) error {
	stats, err := h.VehicleRepo.Stats(c.Request().Context())
	if err != nil {
		log.Printf("vehicle stats: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load vehicle stats"})
	}
	return c.JSON(http.StatusOK, stats)
}

// InUse handles GET /v1/vehicles/in-use.  Each entry joins the vehicle
// with its open driving log and the driver, so the dashboard can show who
// took which car and when.
func (h *VehicleHandler) InUse(c echo.Context) error {
	details, err := h.VehicleRepo.ListInUse(c.Request().Context())
	if err != nil {
		log.Printf("vehicles in use: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load in-use vehicles"})
	}
	return c.JSON(http.StatusOK, details)
}

// DrivingLogStats handles GET /v1/driving-logs/stats: the number of
// vehicles currently out plus how many logs were opened today (UTC).
func (h *VehicleHandler) DrivingLogStats(c echo.Context) error {
	stats, err := h.DrivingLogRepo.Stats(c.Request().Context(), time.Now().UTC())
	if err != nil {
		log.Printf("driving log stats: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load driving log stats"})
	}
	return c.JSON(http.StatusOK, stats)
}
