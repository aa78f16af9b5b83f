package postgresql

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"parksmart/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

func NewDB(cfg *config.Config) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSslMode)

	db, err := sql.Open("pgx", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("lỗi mở kết nối database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("lỗi ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema tạo bảng và index nếu chưa có. Các câu lệnh đều idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("lỗi khởi tạo schema: %w", err)
	}
	log.Println("Schema database đã sẵn sàng.")
	return nil
}

// isUniqueViolation nhận cả lỗi của lib/pq lẫn lỗi có SQLSTATE 23505.
func isUniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint, pqErr.Code.Name() == "unique_violation"
	}
	var stateErr interface {
		SQLState() string
	}
	if errors.As(err, &stateErr) && stateErr.SQLState() == "23505" {
		return "", true
	}
	return "", false
}
