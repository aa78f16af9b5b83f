package service

import (
	"context"
	"errors"
	"parksmart/internal/cache"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"testing"
	"time"
)

// flakyLotRepo trả lỗi khi tải một bãi cụ thể.
type flakyLotRepo struct {
	repository.ParkingLotRepository
	failLotID int
}

func (r *flakyLotRepo) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	if id == r.failLotID {
		return nil, errors.New("connection reset by peer")
	}
	return r.ParkingLotRepository.FindByID(ctx, id)
}

func newTestReconciler(env *testEnv, lots repository.ParkingLotRepository) (*Reconciler, *recordingNotifier) {
	sink := &recordingNotifier{}
	tracking := NewTrackingNotifier(sink, cache.NewMemoryBroadcastCache())
	ledger := NewCapacityLedger(lots, env.reservations)
	return NewReconciler("@every 1m", lots, ledger, tracking, env.clock), sink
}

// Test: lượt quét đầu phát cho mọi bãi, lượt sau không phát nếu không có thay đổi
func TestReconciler_BroadcastsOnlyChanges(t *testing.T) {
	env := newTestEnv(t, 2)
	env.addLot(t, "Bãi B", 4)
	reconciler, sink := newTestReconciler(env, env.lots)
	ctx := context.Background()

	first, err := reconciler.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if first.Checked != 2 || first.Broadcast != 2 || first.Failed != 0 {
		t.Errorf("expected 2 checked and 2 broadcast, got %+v", first)
	}

	second, _ := reconciler.Sweep(ctx)
	if second.Broadcast != 0 {
		t.Errorf("expected no broadcast when nothing changed, got %d", second.Broadcast)
	}

	env.seed(t, "walk-in", domain.ReservationActive, domain.OpenEndedFrom(baseNow.Add(-time.Hour)))
	third, _ := reconciler.Sweep(ctx)
	if third.Broadcast != 1 {
		t.Errorf("expected 1 broadcast after change, got %d", third.Broadcast)
	}
	update, _ := sink.last()
	if update.LotID != env.lot.ID || update.CurrentAvailable != 1 || update.Reason != domain.ReasonReconciled {
		t.Errorf("expected reconciled update for lot %d with 1 spot, got %+v", env.lot.ID, update)
	}
}

// Test: thời gian trôi qua làm đặt chỗ hết hiệu lực cũng được phát lại
func TestReconciler_ClockAdvance(t *testing.T) {
	env := newTestEnv(t, 1)
	env.seed(t, "morning", domain.ReservationConfirmed, domain.NewTimeRange(baseNow.Add(-time.Hour), hour(8)))
	reconciler, sink := newTestReconciler(env, env.lots)
	ctx := context.Background()

	reconciler.Sweep(ctx)
	if update, _ := sink.last(); update.CurrentAvailable != 0 {
		t.Fatalf("expected 0 available at 07:00, got %d", update.CurrentAvailable)
	}

	env.clock.Set(hour(8))
	result, _ := reconciler.Sweep(ctx)
	if result.Broadcast != 1 {
		t.Errorf("expected broadcast when the window ends, got %d", result.Broadcast)
	}
	if update, _ := sink.last(); update.CurrentAvailable != 1 {
		t.Errorf("expected 1 available at 08:00, got %d", update.CurrentAvailable)
	}
}

// Test: lỗi của một bãi không chặn các bãi khác
func TestReconciler_IsolatesLotErrors(t *testing.T) {
	env := newTestEnv(t, 2)
	healthy := env.addLot(t, "Bãi B", 3)
	lots := &flakyLotRepo{ParkingLotRepository: env.lots, failLotID: env.lot.ID}
	reconciler, sink := newTestReconciler(env, lots)

	result, err := reconciler.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Checked != 2 || result.Failed != 1 || result.Broadcast != 1 {
		t.Errorf("expected 2 checked, 1 failed, 1 broadcast, got %+v", result)
	}
	update, ok := sink.last()
	if !ok || update.LotID != healthy.ID {
		t.Errorf("expected broadcast for lot %d, got %+v", healthy.ID, update)
	}
}

// Test: phát thất bại thì không ghi nhận, lượt sau phát lại
func TestReconciler_RetriesFailedBroadcast(t *testing.T) {
	env := newTestEnv(t, 2)
	reconciler, sink := newTestReconciler(env, env.lots)
	sink.err = errors.New("socket closed")

	result, _ := reconciler.Sweep(context.Background())
	if result.Failed != 1 || result.Broadcast != 0 {
		t.Errorf("expected failed broadcast, got %+v", result)
	}

	sink.err = nil
	result, _ = reconciler.Sweep(context.Background())
	if result.Broadcast != 1 {
		t.Errorf("expected broadcast to be retried, got %+v", result)
	}
}

// Test: lịch không hợp lệ bị từ chối khi khởi động
func TestReconciler_InvalidSchedule(t *testing.T) {
	env := newTestEnv(t, 1)
	reconciler := NewReconciler("not a schedule", env.lots, env.ledger, NewTrackingNotifier(nil, cache.NewMemoryBroadcastCache()), env.clock)
	if err := reconciler.Start(); err == nil {
		reconciler.Stop()
		t.Error("expected error for invalid schedule")
	}
}

// Test: lịch bảo trì không hợp lệ bị từ chối
func TestReconciler_ScheduleValidation(t *testing.T) {
	env := newTestEnv(t, 1)
	reconciler, _ := newTestReconciler(env, env.lots)
	noop := func(context.Context) error { return nil }

	if err := reconciler.Schedule("@every 1m", "noop", noop); err != nil {
		t.Errorf("expected valid schedule, got %v", err)
	}
	if err := reconciler.Schedule("every now and then", "noop", noop); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

// hangingLotRepo chặn FindAll cho tới khi context bị hủy.
type hangingLotRepo struct {
	repository.ParkingLotRepository
}

func (r *hangingLotRepo) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// Test: lượt quét theo lịch có deadline, lời gọi lưu trữ bị treo không giữ lượt quét mãi
func TestReconciler_ScheduledSweepHasDeadline(t *testing.T) {
	env := newTestEnv(t, 1)
	reconciler, _ := newTestReconciler(env, &hangingLotRepo{ParkingLotRepository: env.lots})
	reconciler.sweepTimeout = 20 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		_, err := reconciler.runSweep()
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled sweep did not stop at its deadline")
	}
}
