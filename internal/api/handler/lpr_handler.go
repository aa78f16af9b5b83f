package handler

import (
	"errors"
	"log"
	"net/http"
	"parksmart/internal/domain"
	"parksmart/internal/service"

	"github.com/gin-gonic/gin"
)

type LPRHandler struct {
	recognizer service.PlateRecognizer
}

func NewLPRHandler(recognizer service.PlateRecognizer) *LPRHandler {
	return &LPRHandler{recognizer: recognizer}
}

// POST /api/v1/lpr/process-image
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload không hợp lệ: " + err.Error()})
		return
	}

	plate, confidence, err := h.recognizer.RecognizePlate(c.Request.Context(), req.ImageBase64)
	if err != nil {
		if errors.Is(err, service.ErrPlateNotRecognized) {
			c.JSON(http.StatusOK, domain.LPRResponseDTO{ErrorMessage: "Không nhận dạng được biển số."})
			return
		}
		log.Printf("LPRHandler: Lỗi từ LPRService: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Lỗi xử lý ảnh LPR", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, domain.LPRResponseDTO{DetectedPlate: plate, Confidence: confidence})
}
