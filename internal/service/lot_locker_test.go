package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Test: khóa của một bãi chặn lần lấy thứ hai cho tới khi được nhả
func TestLotLocker_ExclusivePerLot(t *testing.T) {
	locker := NewLotLocker(50 * time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := locker.Acquire(ctx, 1); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy while held, got %v", err)
	}

	other, err := locker.Acquire(ctx, 2)
	if err != nil {
		t.Errorf("expected other lot to be independent, got %v", err)
	} else {
		other()
	}

	release()
	release() // nhả hai lần không được làm hỏng khóa

	again, err := locker.Acquire(ctx, 1)
	if err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
	again()
}

// Test: người chờ nhận được khóa khi người giữ nhả trong thời hạn
func TestLotLocker_WaiterGetsLock(t *testing.T) {
	locker := NewLotLocker(time.Second)
	release, _ := locker.Acquire(context.Background(), 1)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	next, err := locker.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected waiter to acquire, got %v", err)
	}
	next()
}

// Test: hủy context khi đang chờ trả về lỗi của context
func TestLotLocker_ContextCancelled(t *testing.T) {
	locker := NewLotLocker(time.Second)
	release, _ := locker.Acquire(context.Background(), 1)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}
