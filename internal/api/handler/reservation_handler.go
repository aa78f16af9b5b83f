package handler

import (
	"net/http"
	"parksmart/internal/api/middleware"
	"parksmart/internal/domain"
	"parksmart/internal/service"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	availabilityService *service.AvailabilityService
}

func NewReservationHandler(as *service.AvailabilityService) *ReservationHandler {
	return &ReservationHandler{availabilityService: as}
}

// POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Chưa xác thực"})
		return
	}
	var dto domain.CreateReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window := dto.Window()
	window.Start = window.Start.UTC()
	if window.End.Valid {
		window.End.Time = window.End.Time.UTC()
	}
	res, err := h.availabilityService.Reserve(c.Request.Context(), service.ReserveRequest{
		LotID:         dto.LotID,
		UserID:        userID,
		VehicleClass:  dto.VehicleClass,
		VehicleNumber: dto.VehicleNumber,
		Window:        window,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GET /reservations/mine
func (h *ReservationHandler) ListMyReservations(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Chưa xác thực"})
		return
	}
	list, err := h.availabilityService.ListReservations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Chưa xác thực"})
		return
	}
	res, err := h.availabilityService.GetReservation(c.Request.Context(), c.Param("id"), userID, role == domain.RoleAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /reservations/:id/cancel
func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Chưa xác thực"})
		return
	}
	res, err := h.availabilityService.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /reservations/:id/check-in
func (h *ReservationHandler) CheckIn(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Chưa xác thực"})
		return
	}
	res, err := h.availabilityService.CheckIn(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /reservations/:id/complete (admin)
func (h *ReservationHandler) CompleteReservation(c *gin.Context) {
	res, err := h.availabilityService.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
