package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	row      pgx.Row
	lastSQL  string
	lastArgs []any
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.lastArgs = args
	return f.row
}

func TestShopForAppointment_Found(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		id := int64(14)
		*(dest[0].(**int64)) = &id
		return nil
	}}}
	r := NewShopRepository(db)
	shop, ok, err := r.ShopForAppointment(context.Background(), 901)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(14), shop)
	require.Equal(t, []any{int64(901)}, db.lastArgs)
	require.Contains(t, db.lastSQL, "FROM appointments")
}

func TestShopForAppointment_NoRows(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}}
	_, ok, err := NewShopRepository(db).ShopForAppointment(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestShopForAppointment_NullShop(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(...any) error { return nil }}}
	_, ok, err := NewShopRepository(db).ShopForAppointment(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestShopForAppointment_Error(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(...any) error { return errors.New("boom") }}}
	_, _, err := NewShopRepository(db).ShopForAppointment(context.Background(), 1)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ShopForAppointment")
}

func TestIsOwner(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}}}
	ok, err := NewShopRepository(db).IsOwner(context.Background(), 14, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []any{int64(14), "u1"}, db.lastArgs)
}
