package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationColumns = `id, lot_id, user_id, vehicle_class, vehicle_number, start_time, end_time, status,
	estimated_amount, amount, check_in_time, completed_at, cancelled_at, created_at, updated_at`

func occupyingStatuses() pq.StringArray {
	statuses := make(pq.StringArray, 0, len(domain.OccupyingStatuses))
	for _, s := range domain.OccupyingStatuses {
		statuses = append(statuses, string(s))
	}
	return statuses
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	err := row.Scan(
		&res.ID, &res.LotID, &res.UserID, &res.VehicleClass, &res.VehicleNumber,
		&res.Window.Start, &res.Window.End, &res.Status,
		&res.EstimatedAmount, &res.Amount, &res.CheckInTime, &res.CompletedAt, &res.CancelledAt,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	res.Window.Start = res.Window.Start.In(time.UTC)
	if res.Window.End.Valid {
		res.Window.End.Time = res.Window.End.Time.In(time.UTC)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations
	           (id, lot_id, user_id, vehicle_class, vehicle_number, start_time, end_time, status, estimated_amount, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		res.ID, res.LotID, res.UserID, res.VehicleClass, res.VehicleNumber,
		res.Window.Start, res.Window.End, res.Status, res.EstimatedAmount,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if _, dup := isUniqueViolation(err); dup {
			return nil, fmt.Errorf("%w: đặt chỗ %s", repository.ErrDuplicateEntry, res.ID)
		}
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) Update(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `UPDATE reservations
	           SET end_time = $1, status = $2, amount = $3, check_in_time = $4, completed_at = $5, cancelled_at = $6,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $7
	           RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		res.Window.End, res.Status, res.Amount, res.CheckInTime, res.CompletedAt, res.CancelledAt, res.ID,
	).Scan(&res.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.Update: %w", err)
	}
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) FindByUser(ctx context.Context, userID int) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, "FindByUser", query, userID)
}

func (r *pgReservationRepository) FindOccupyingByVehicle(ctx context.Context, lotID int, vehicleNumber string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE lot_id = $1 AND vehicle_number = $2 AND status = ANY($3)
	           ORDER BY start_time ASC`
	return r.list(ctx, "FindOccupyingByVehicle", query, lotID, vehicleNumber, occupyingStatuses())
}

// CountOccupying: điều kiện giao nhau nửa mở, end_time NULL là khoảng chưa kết thúc.
func (r *pgReservationRepository) CountOccupying(ctx context.Context, lotID int, window domain.TimeRange) (int, error) {
	query := `SELECT COUNT(*) FROM reservations
	           WHERE lot_id = $1 AND status = ANY($2)
	             AND ($4::timestamptz IS NULL OR start_time < $4)
	             AND (end_time IS NULL OR end_time > $3)`
	var count int
	err := r.db.QueryRowContext(ctx, query, lotID, occupyingStatuses(), window.Start, window.End).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ReservationRepository.CountOccupying: %w", err)
	}
	return count, nil
}

func (r *pgReservationRepository) CountOccupyingAt(ctx context.Context, lotID int, at time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM reservations
	           WHERE lot_id = $1 AND status = ANY($2)
	             AND start_time <= $3
	             AND (end_time IS NULL OR end_time > $3)`
	var count int
	err := r.db.QueryRowContext(ctx, query, lotID, occupyingStatuses(), at).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ReservationRepository.CountOccupyingAt: %w", err)
	}
	return count, nil
}

func (r *pgReservationRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.%s: %w", op, err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("ReservationRepository.%s (scanning row): %w", op, err)
		}
		reservations = append(reservations, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.%s (rows error): %w", op, err)
	}
	return reservations, nil
}
