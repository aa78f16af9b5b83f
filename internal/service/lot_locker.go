package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LotLocker cấp khóa loại trừ theo từng bãi. Các bãi khác nhau không chặn nhau.
// Khóa là channel một phần tử nên việc chờ có thể bị hủy bởi ctx hoặc hết hạn timeout.
//
// TODO: khi chạy nhiều replica API cần thay bằng khóa hàng parking_lots (SELECT ... FOR UPDATE)
// trong cùng transaction với INSERT reservations.
type LotLocker struct {
	mu      sync.Mutex
	slots   map[int]chan struct{}
	timeout time.Duration
}

func NewLotLocker(timeout time.Duration) *LotLocker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &LotLocker{slots: make(map[int]chan struct{}), timeout: timeout}
}

func (l *LotLocker) slot(lotID int) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[lotID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[lotID] = ch
	}
	return ch
}

// Acquire chờ khóa của bãi tối đa timeout. Hết hạn trả về ErrBusy.
// release phải được gọi đúng một lần, thường bằng defer.
func (l *LotLocker) Acquire(ctx context.Context, lotID int) (release func(), err error) {
	ch := l.slot(lotID)

	select {
	case ch <- struct{}{}:
		return l.releaser(ch), nil
	default:
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return l.releaser(ch), nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: chờ khóa bãi %d quá %s", ErrBusy, lotID, l.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *LotLocker) releaser(ch chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}
}
