package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"time"
)

type pgGateEventRepository struct {
	db *sql.DB
}

func NewPgGateEventRepository(db *sql.DB) repository.GateEventRepository {
	return &pgGateEventRepository{db: db}
}

func (r *pgGateEventRepository) Create(ctx context.Context, event *domain.GateEventRecord) error {
	query := `INSERT INTO gate_events
		(event_id, lot_id, device_id, event_type, vehicle_number, reservation_id, status, matched, processed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		event.EventID, event.LotID, event.DeviceID, event.EventType, event.VehicleNumber,
		event.ReservationID, string(event.Status), event.Matched, event.ProcessedAt, event.ExpiresAt,
	)
	if err != nil {
		if _, dup := isUniqueViolation(err); dup {
			return fmt.Errorf("%w: sự kiện cổng %s", repository.ErrDuplicateEntry, event.EventID)
		}
		return fmt.Errorf("GateEventRepository.Create: %w", err)
	}
	return nil
}

func (r *pgGateEventRepository) FindByEventID(ctx context.Context, eventID string) (*domain.GateEventRecord, error) {
	query := `SELECT event_id, lot_id, device_id, event_type, vehicle_number, reservation_id, status, matched,
		processed_at, expires_at
		FROM gate_events WHERE event_id = $1`

	event := &domain.GateEventRecord{}
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.EventID, &event.LotID, &event.DeviceID, &event.EventType, &event.VehicleNumber,
		&event.ReservationID, &event.Status, &event.Matched, &event.ProcessedAt, &event.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("GateEventRepository.FindByEventID: %w", err)
	}

	event.ProcessedAt = event.ProcessedAt.In(time.UTC)
	event.ExpiresAt = event.ExpiresAt.In(time.UTC)
	return event, nil
}

func (r *pgGateEventRepository) CleanupExpiredEvents(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM gate_events WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("GateEventRepository.CleanupExpiredEvents: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("GateEventRepository.CleanupExpiredEvents (checking rows): %w", err)
	}
	return rowsAffected, nil
}
