package handler

import (
	"net/http"
	"parksmart/internal/domain"
	"parksmart/internal/service"

	"github.com/gin-gonic/gin"
)

// GateEventHandler nhận sự kiện cổng qua HTTP, dùng khi thiết bị không gửi qua SQS
// hoặc người vận hành xử lý thủ công.
type GateEventHandler struct {
	gateService *service.GateService
}

func NewGateEventHandler(gs *service.GateService) *GateEventHandler {
	return &GateEventHandler{gateService: gs}
}

// POST /api/v1/gate-events
func (h *GateEventHandler) SubmitGateEvent(c *gin.Context) {
	var event domain.GateEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}
	if event.Type != domain.GateVehicleEntry && event.Type != domain.GateVehicleExit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type phải là vehicle_entry hoặc vehicle_exit"})
		return
	}

	result, err := h.gateService.HandleGateEvent(c.Request.Context(), event)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
