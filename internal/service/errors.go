package service

import (
	"errors"
	"fmt"
	"parksmart/internal/repository"

	"gopkg.in/guregu/null.v4"
)

var (
	ErrPolicyViolation    = errors.New("vi phạm chính sách đặt chỗ")
	ErrUnsupportedVehicle = fmt.Errorf("%w: bãi không phục vụ loại xe này", ErrPolicyViolation)
	ErrLotClosed          = errors.New("bãi đỗ xe đang đóng cửa")
	ErrNoCapacity         = errors.New("bãi đỗ xe đã hết chỗ trong khoảng thời gian yêu cầu")
	ErrForbidden          = errors.New("không có quyền thao tác trên đặt chỗ này")
	ErrBusy               = errors.New("bãi đỗ xe đang bận, vui lòng thử lại")
	ErrTransient          = errors.New("lỗi lưu trữ tạm thời, có thể thử lại")
)

// ReservationError là kết quả từ chối có cấu trúc: loại lỗi kèm số chỗ trống hiện có (nếu liên quan).
// WindowAvailable là số chỗ trống trong khoảng thời gian được yêu cầu.
type ReservationError struct {
	Kind            error
	LotID           int
	Available       null.Int
	WindowAvailable null.Int
	Detail          string
}

func (e *ReservationError) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Available.Valid {
		msg += fmt.Sprintf(" (bãi %d hiện còn %d chỗ)", e.LotID, e.Available.Int64)
	}
	return msg
}

func (e *ReservationError) Unwrap() error {
	return e.Kind
}

func rejection(kind error, lotID int, available null.Int, detail string) *ReservationError {
	return &ReservationError{Kind: kind, LotID: lotID, Available: available, Detail: detail}
}

// storageError giữ nguyên ErrNotFound và ErrDuplicateEntry, các lỗi lưu trữ khác được đánh dấu ErrTransient.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicateEntry) || errors.Is(err, ErrTransient) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
