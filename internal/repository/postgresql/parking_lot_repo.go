package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"parksmart/internal/domain"
	"parksmart/internal/repository"
	"time"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const lotColumns = `id, name, address, total_capacity, is_open, rates, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	var rates []byte
	if err := row.Scan(&lot.ID, &lot.Name, &lot.Address, &lot.TotalCapacity, &lot.IsOpen, &rates, &lot.CreatedAt, &lot.UpdatedAt); err != nil {
		return nil, err
	}
	if len(rates) > 0 {
		if err := json.Unmarshal(rates, &lot.Rates); err != nil {
			return nil, fmt.Errorf("biểu phí của bãi %d không hợp lệ: %w", lot.ID, err)
		}
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	rates, err := json.Marshal(lot.Rates)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.Create (marshal rates): %w", err)
	}
	query := `INSERT INTO parking_lots (name, address, total_capacity, is_open, rates)
	           VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, lot.Name, lot.Address, lot.TotalCapacity, lot.IsOpen, rates).
		Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if _, dup := isUniqueViolation(err); dup {
			return nil, fmt.Errorf("%w: tên bãi đỗ xe '%s' đã tồn tại", repository.ErrDuplicateEntry, lot.Name)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1`
	lot, err := scanLot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lots = append(lots, *lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	return lots, nil
}

func (r *pgParkingLotRepository) SetOpen(ctx context.Context, id int, isOpen bool) (*domain.ParkingLot, error) {
	query := `UPDATE parking_lots SET is_open = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 RETURNING ` + lotColumns
	lot, err := scanLot(r.db.QueryRowContext(ctx, query, isOpen, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.SetOpen: %w", err)
	}
	return lot, nil
}
