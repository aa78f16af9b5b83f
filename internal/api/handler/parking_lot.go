package handler

import (
	"net/http"
	"parksmart/internal/domain"
	"parksmart/internal/service"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type ParkingLotHandler struct {
	parkingService      *service.ParkingService
	availabilityService *service.AvailabilityService
	location            *time.Location
}

func NewParkingLotHandler(ps *service.ParkingService, as *service.AvailabilityService, loc *time.Location) *ParkingLotHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ParkingLotHandler{parkingService: ps, availabilityService: as, location: loc}
}

// POST /parking-lots
func (h *ParkingLotHandler) CreateParkingLot(c *gin.Context) {
	var dto domain.ParkingLotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.parkingService.CreateParkingLot(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// GET /parking-lots/:id
func (h *ParkingLotHandler) GetParkingLotByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	lot, err := h.parkingService.GetParkingLotByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// GET /parking-lots
func (h *ParkingLotHandler) GetAllParkingLots(c *gin.Context) {
	lots, err := h.parkingService.GetAllParkingLots(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

// PATCH /parking-lots/:id/open
func (h *ParkingLotHandler) SetLotOpen(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var dto domain.SetLotOpenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lot, err := h.parkingService.SetLotOpen(c.Request.Context(), id, *dto.IsOpen)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// GET /parking-lots/:id/availability?at=... hoặc ?start=...&end=...
// Không có tham số: số chỗ trống tại thời điểm hiện tại.
func (h *ParkingLotHandler) GetAvailability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var (
		availability *domain.LotAvailability
		err          error
	)
	switch {
	case c.Query("start") != "":
		window, perr := parseWindowQuery(c.Query("start"), c.Query("end"))
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error(), "kind": "invalid_window"})
			return
		}
		availability, err = h.availabilityService.AvailableSpots(c.Request.Context(), id, window)
	case c.Query("at") != "":
		at, perr := time.Parse(time.RFC3339, c.Query("at"))
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số 'at' phải theo RFC3339", "kind": "invalid_window"})
			return
		}
		availability, err = h.availabilityService.AvailableSpotsAt(c.Request.Context(), id, at.UTC())
	default:
		availability, err = h.availabilityService.AvailableSpotsAt(c.Request.Context(), id, h.availabilityService.Now())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

// GET /parking-lots/:id/availability/hourly?date=YYYY-MM-DD
func (h *ParkingLotHandler) GetHourlyAvailability(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	date := h.availabilityService.Now().In(h.location)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, h.location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số 'date' phải có dạng YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	breakdown, err := h.availabilityService.OccupancyBreakdown(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lot_id": id,
		"date":   date.Format(dateLayout),
		"hourly": breakdown,
	})
}

func parseWindowQuery(startRaw, endRaw string) (domain.TimeRange, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return domain.TimeRange{}, err
	}
	if endRaw == "" {
		return domain.OpenEndedFrom(start.UTC()), nil
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return domain.TimeRange{}, err
	}
	return domain.NewTimeRange(start.UTC(), end.UTC()), nil
}
