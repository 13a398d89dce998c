package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/barbershop/internal/logger"
)

// rowQuerier — то, что нужно репозиторию от *pgxpool.Pool.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ShopRepository читает салоны и записи из основной БД маркетплейса (только чтение).
type ShopRepository struct {
	db rowQuerier
}

func NewShopRepository(db rowQuerier) *ShopRepository {
	return &ShopRepository{db: db}
}

// ShopForAppointment возвращает салон, которому принадлежит запись. Нет записи — ok=false.
func (r *ShopRepository) ShopForAppointment(ctx context.Context, appointmentID int64) (int64, bool, error) {
	defer logger.DeferLogDuration("shop.ShopForAppointment", time.Now())()
	var shopID *int64
	err := r.db.QueryRow(ctx,
		`SELECT shop_id FROM appointments WHERE id = $1`, appointmentID,
	).Scan(&shopID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("shopRepo.ShopForAppointment: %w", err)
	}
	if shopID == nil {
		return 0, false, nil
	}
	return *shopID, true, nil
}

// IsOwner проверяет, что пользователь владеет салоном.
func (r *ShopRepository) IsOwner(ctx context.Context, shopID int64, userID string) (bool, error) {
	defer logger.DeferLogDuration("shop.IsOwner", time.Now())()
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM shops WHERE id = $1 AND owner_id::text = $2)`, shopID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("shopRepo.IsOwner: %w", err)
	}
	return ok, nil
}
