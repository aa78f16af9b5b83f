package service

import (
	"context"
	"errors"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"parksmart/internal/repository/memory"
	"sync"
	"testing"
	"time"

	"gopkg.in/guregu/null.v4"
)

// 07:00 UTC; các khoảng đặt chỗ trong test nằm sau thời điểm này.
var baseNow = time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

func hour(h int) time.Time {
	return time.Date(2025, 6, 2, h, 0, 0, 0, time.UTC)
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingNotifier struct {
	mu      sync.Mutex
	updates []domain.AvailabilityUpdate
	err     error
}

func (n *recordingNotifier) Publish(_ context.Context, update domain.AvailabilityUpdate) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
	return n.err
}

func (n *recordingNotifier) last() (domain.AvailabilityUpdate, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.updates) == 0 {
		return domain.AvailabilityUpdate{}, false
	}
	return n.updates[len(n.updates)-1], true
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

// failingReservationRepo trả lỗi cho Create khi failCreate > 0.
type failingReservationRepo struct {
	repository.ReservationRepository
	mu         sync.Mutex
	failCreate int
}

var errDiskFull = errors.New("could not write: disk full")

func (r *failingReservationRepo) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	r.mu.Lock()
	if r.failCreate > 0 {
		r.failCreate--
		r.mu.Unlock()
		return nil, errDiskFull
	}
	r.mu.Unlock()
	return r.ReservationRepository.Create(ctx, res)
}

var testRates = domain.RateSchedule{
	domain.VehicleCar: {FirstHour: 20000, AdditionalHourly: 10000, MaxDaily: null.FloatFrom(100000)},
}

type testEnv struct {
	lots         *memory.ParkingLotRepository
	reservations *failingReservationRepo
	clock        *fixedClock
	notifier     *recordingNotifier
	locker       *LotLocker
	ledger       *CapacityLedger
	svc          *AvailabilityService
	lot          *domain.ParkingLot
}

func newTestEnv(t *testing.T, capacity int) *testEnv {
	t.Helper()
	env := &testEnv{
		lots:         memory.NewParkingLotRepository(),
		reservations: &failingReservationRepo{ReservationRepository: memory.NewReservationRepository()},
		clock:        &fixedClock{now: baseNow},
		notifier:     &recordingNotifier{},
		locker:       NewLotLocker(2 * time.Second),
	}
	env.ledger = NewCapacityLedger(env.lots, env.reservations)
	env.svc = NewAvailabilityService(env.lots, env.reservations, env.ledger, env.locker, env.notifier, env.clock,
		BookingPolicy{MaxAdvanceBooking: 30 * 24 * time.Hour, MaxReservationDuration: 24 * time.Hour})
	env.lot = env.addLot(t, "Bãi A", capacity)
	return env
}

func (e *testEnv) addLot(t *testing.T, name string, capacity int) *domain.ParkingLot {
	t.Helper()
	lot, err := e.lots.Create(context.Background(), &domain.ParkingLot{
		Name: name, TotalCapacity: capacity, IsOpen: true, Rates: testRates,
	})
	if err != nil {
		t.Fatalf("create lot: %v", err)
	}
	return lot
}

// allowOpenEnded tắt giới hạn thời lượng để nhận đặt chỗ không có giờ kết thúc.
func (e *testEnv) allowOpenEnded() {
	e.svc.policy.MaxReservationDuration = 0
}

func (e *testEnv) request(userID int, window domain.TimeRange) ReserveRequest {
	return ReserveRequest{
		LotID:         e.lot.ID,
		UserID:        userID,
		VehicleClass:  domain.VehicleCar,
		VehicleNumber: "29A-123.45",
		Window:        window,
	}
}

// seed ghi thẳng một đặt chỗ vào repository, bỏ qua kiểm tra sức chứa.
func (e *testEnv) seed(t *testing.T, id string, status domain.ReservationStatus, window domain.TimeRange) {
	t.Helper()
	_, err := e.reservations.Create(context.Background(), &domain.Reservation{
		ID: id, LotID: e.lot.ID, UserID: 99, VehicleClass: domain.VehicleCar, Window: window, Status: status,
	})
	if err != nil {
		t.Fatalf("seed reservation: %v", err)
	}
}
