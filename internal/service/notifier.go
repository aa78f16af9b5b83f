package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"parksmart/internal/cache"
	"parksmart/internal/domain"
	"time"
)

// ChangeNotifier nhận cập nhật số chỗ trống sau mỗi thay đổi. Lỗi chỉ được log, không trả về cho người gọi nghiệp vụ.
type ChangeNotifier interface {
	Publish(ctx context.Context, update domain.AvailabilityUpdate) error
}

type NotifierFunc func(ctx context.Context, update domain.AvailabilityUpdate) error

func (f NotifierFunc) Publish(ctx context.Context, update domain.AvailabilityUpdate) error {
	return f(ctx, update)
}

type MultiNotifier []ChangeNotifier

func (m MultiNotifier) Publish(ctx context.Context, update domain.AvailabilityUpdate) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TrackingNotifier ghi lại giá trị đã phát gần nhất của từng bãi để Reconciler chỉ phát khi có thay đổi.
type TrackingNotifier struct {
	next  ChangeNotifier
	cache cache.BroadcastCache
}

func NewTrackingNotifier(next ChangeNotifier, c cache.BroadcastCache) *TrackingNotifier {
	return &TrackingNotifier{next: next, cache: c}
}

func (t *TrackingNotifier) Publish(ctx context.Context, update domain.AvailabilityUpdate) error {
	if t.next != nil {
		if err := t.next.Publish(ctx, update); err != nil {
			return err
		}
	}
	if err := t.cache.SetLastBroadcast(ctx, update.LotID, update.CurrentAvailable); err != nil {
		return fmt.Errorf("lưu giá trị phát gần nhất của bãi %d: %w", update.LotID, err)
	}
	return nil
}

// LastBroadcast trả về false nếu bãi chưa từng được phát.
func (t *TrackingNotifier) LastBroadcast(ctx context.Context, lotID int) (int, bool, error) {
	return t.cache.LastBroadcast(ctx, lotID)
}

const notifyTimeout = 2 * time.Second

// publishQuietly gửi cập nhật với context tách khỏi request; lỗi chỉ được log.
func publishQuietly(ctx context.Context, n ChangeNotifier, update domain.AvailabilityUpdate) {
	if n == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.Publish(pubCtx, update); err != nil {
		log.Printf("ChangeNotifier: Lỗi khi phát cập nhật bãi %d (%s): %v", update.LotID, update.Reason, err)
	}
}
