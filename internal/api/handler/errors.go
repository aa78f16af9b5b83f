package handler

import (
	"errors"
	"log"
	"net/http"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"parksmart/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

const retryAfterSeconds = 1

type errorKind struct {
	target error
	status int
	kind   string
}

// Thứ tự quan trọng: ErrUnsupportedVehicle phải đứng trước ErrPolicyViolation.
var errorKinds = []errorKind{
	{repository.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidWindow, http.StatusBadRequest, "invalid_window"},
	{service.ErrUnsupportedVehicle, http.StatusBadRequest, "unsupported_vehicle"},
	{service.ErrPolicyViolation, http.StatusBadRequest, "policy_violation"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{service.ErrNoCapacity, http.StatusConflict, "no_capacity"},
	{service.ErrLotClosed, http.StatusConflict, "lot_closed"},
	{repository.ErrDuplicateEntry, http.StatusConflict, "duplicate"},
	{service.ErrUserAlreadyExists, http.StatusConflict, "user_exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrBusy, http.StatusServiceUnavailable, "busy"},
	{service.ErrTransient, http.StatusServiceUnavailable, "transient"},
}

// respondError ánh xạ lỗi nghiệp vụ sang mã HTTP và body {"error","kind","available_spots","window_available_spots"}.
func respondError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		body := gin.H{"error": err.Error(), "kind": k.kind}
		var rejection *service.ReservationError
		if errors.As(err, &rejection) {
			if rejection.Available.Valid {
				body["available_spots"] = rejection.Available.Int64
			}
			if rejection.WindowAvailable.Valid {
				body["window_available_spots"] = rejection.WindowAvailable.Int64
			}
		}
		if k.status == http.StatusServiceUnavailable {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		}
		c.JSON(k.status, body)
		return
	}
	log.Printf("Handler: Lỗi không xác định cho %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi hệ thống", "details": err.Error(), "kind": "internal"})
}

func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ: " + c.Param(name)})
		return 0, false
	}
	return id, true
}
