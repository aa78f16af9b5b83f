// Package memory chứa các repository lưu trong bộ nhớ, dùng cho môi trường dev và test.
// Điều kiện giao nhau dùng chung domain.TimeRange với phần còn lại của hệ thống.
package memory

import (
	"context"
	"fmt"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"sort"
	"strings"
	"sync"
	"time"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int
	users  map[int]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int]domain.User)}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return nil, fmt.Errorf("%w: tên người dùng '%s' đã tồn tại", repository.ErrDuplicateEntry, user.Username)
		}
	}
	r.nextID++
	now := time.Now().UTC()
	user.ID = r.nextID
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = *user
	return user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type ParkingLotRepository struct {
	mu     sync.RWMutex
	nextID int
	lots   map[int]domain.ParkingLot
}

func NewParkingLotRepository() *ParkingLotRepository {
	return &ParkingLotRepository{lots: make(map[int]domain.ParkingLot)}
}

func copyLot(l domain.ParkingLot) domain.ParkingLot {
	rates := make(domain.RateSchedule, len(l.Rates))
	for k, v := range l.Rates {
		rates[k] = v
	}
	l.Rates = rates
	return l
}

func (r *ParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lots {
		if l.Name == lot.Name {
			return nil, fmt.Errorf("%w: tên bãi đỗ xe '%s' đã tồn tại", repository.ErrDuplicateEntry, lot.Name)
		}
	}
	r.nextID++
	now := time.Now().UTC()
	lot.ID = r.nextID
	lot.CreatedAt, lot.UpdatedAt = now, now
	r.lots[lot.ID] = copyLot(*lot)
	return lot, nil
}

func (r *ParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := copyLot(l)
	return &found, nil
}

func (r *ParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lots := make([]domain.ParkingLot, 0, len(r.lots))
	for _, l := range r.lots {
		lots = append(lots, copyLot(l))
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].Name < lots[j].Name })
	return lots, nil
}

func (r *ParkingLotRepository) SetOpen(ctx context.Context, id int, isOpen bool) (*domain.ParkingLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l.IsOpen = isOpen
	l.UpdatedAt = time.Now().UTC()
	r.lots[id] = l
	updated := copyLot(l)
	return &updated, nil
}

type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]domain.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{reservations: make(map[string]domain.Reservation)}
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reservations[res.ID]; exists {
		return nil, fmt.Errorf("%w: đặt chỗ %s", repository.ErrDuplicateEntry, res.ID)
	}
	now := time.Now().UTC()
	res.CreatedAt, res.UpdatedAt = now, now
	r.reservations[res.ID] = *res
	return res, nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &res, nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[res.ID]; !ok {
		return nil, repository.ErrNotFound
	}
	res.UpdatedAt = time.Now().UTC()
	r.reservations[res.ID] = *res
	return res, nil
}

func (r *ReservationRepository) FindByUser(ctx context.Context, userID int) ([]domain.Reservation, error) {
	found := r.filter(func(res domain.Reservation) bool { return res.UserID == userID })
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	return found, nil
}

func (r *ReservationRepository) FindOccupyingByVehicle(ctx context.Context, lotID int, vehicleNumber string) ([]domain.Reservation, error) {
	found := r.filter(func(res domain.Reservation) bool {
		return res.LotID == lotID && res.VehicleNumber == vehicleNumber && res.Status.IsOccupying()
	})
	sort.Slice(found, func(i, j int) bool { return found[i].Window.Start.Before(found[j].Window.Start) })
	return found, nil
}

func (r *ReservationRepository) CountOccupying(ctx context.Context, lotID int, window domain.TimeRange) (int, error) {
	return len(r.filter(func(res domain.Reservation) bool {
		return res.LotID == lotID && res.Status.IsOccupying() && res.Window.Overlaps(window)
	})), nil
}

func (r *ReservationRepository) CountOccupyingAt(ctx context.Context, lotID int, at time.Time) (int, error) {
	return len(r.filter(func(res domain.Reservation) bool {
		return res.LotID == lotID && res.Status.IsOccupying() && res.Window.Contains(at)
	})), nil
}

func (r *ReservationRepository) filter(keep func(domain.Reservation) bool) []domain.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Reservation
	for _, res := range r.reservations {
		if keep(res) {
			out = append(out, res)
		}
	}
	return out
}

type GateEventRepository struct {
	mu     sync.Mutex
	events map[string]domain.GateEventRecord
}

func NewGateEventRepository() *GateEventRepository {
	return &GateEventRepository{events: make(map[string]domain.GateEventRecord)}
}

func (r *GateEventRepository) Create(ctx context.Context, event *domain.GateEventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[event.EventID]; exists {
		return fmt.Errorf("%w: sự kiện cổng %s", repository.ErrDuplicateEntry, event.EventID)
	}
	r.events[event.EventID] = *event
	return nil
}

func (r *GateEventRepository) FindByEventID(ctx context.Context, eventID string) (*domain.GateEventRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &event, nil
}

func (r *GateEventRepository) CleanupExpiredEvents(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, event := range r.events {
		if !event.ExpiresAt.After(now) {
			delete(r.events, id)
			removed++
		}
	}
	return removed, nil
}

var (
	_ repository.UserRepository        = (*UserRepository)(nil)
	_ repository.ParkingLotRepository  = (*ParkingLotRepository)(nil)
	_ repository.ReservationRepository = (*ReservationRepository)(nil)
	_ repository.GateEventRepository   = (*GateEventRepository)(nil)
)
