package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consigna/internal/domain"
	"consigna/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const garmentColumns = `id, supplier_id, user_id, code, name, size, purchase_price, sale_price,
	is_sold, payment_status, payment_type, created_at, sold_at`

type garmentStore struct {
	pool *pgxpool.Pool
}

// NewGarmentStore creates a GarmentStore backed by the garments table
func NewGarmentStore(pool *pgxpool.Pool) store.GarmentStore {
	return &garmentStore{pool: pool}
}

// List retrieves every garment, newest first
func (s *garmentStore) List(ctx context.Context) ([]*domain.Garment, error) {
	query := `SELECT ` + garmentColumns + ` FROM garments ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list garments: %w", err)
	}
	defer rows.Close()

	garments := []*domain.Garment{}
	for rows.Next() {
		garment, err := scanGarment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garment: %w", err)
		}
		garments = append(garments, garment)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating garments: %w", err)
	}

	return garments, nil
}

// Insert stores a new garment and returns the row as persisted
func (s *garmentStore) Insert(ctx context.Context, garment *domain.Garment) (*domain.Garment, error) {
	if garment.ID == "" {
		garment.ID = uuid.New().String()
	}
	if garment.CreatedAt.IsZero() {
		garment.CreatedAt = time.Now().UTC()
	}
	if garment.PaymentStatus == "" {
		garment.PaymentStatus = domain.PaymentNotAvailable
	}

	query := `
		INSERT INTO garments (id, supplier_id, user_id, code, name, size, purchase_price, sale_price,
			is_sold, payment_status, payment_type, created_at, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + garmentColumns

	created, err := scanGarment(s.pool.QueryRow(
		ctx,
		query,
		garment.ID,
		garment.SupplierID,
		garment.UserID,
		garment.Code,
		garment.Name,
		garment.Size,
		garment.PurchasePrice,
		garment.SalePrice,
		garment.IsSold,
		string(garment.PaymentStatus),
		paymentTypeArg(garment.PaymentType),
		garment.CreatedAt,
		garment.SoldAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create garment: %w", err)
	}

	return created, nil
}

// Update changes the non-nil fields of patch in a single statement
func (s *garmentStore) Update(ctx context.Context, id string, patch domain.GarmentPatch) (*domain.Garment, error) {
	sets := []string{}
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Code != nil {
		add("code", *patch.Code)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Size != nil {
		add("size", *patch.Size)
	}
	if patch.PurchasePrice != nil {
		add("purchase_price", *patch.PurchasePrice)
	}
	if patch.SalePrice != nil {
		add("sale_price", *patch.SalePrice)
	}
	if patch.IsSold != nil {
		add("is_sold", *patch.IsSold)
	}
	if patch.PaymentStatus != nil {
		add("payment_status", string(*patch.PaymentStatus))
	}
	if patch.PaymentType != nil {
		add("payment_type", string(*patch.PaymentType))
	}
	if patch.SoldAt != nil {
		add("sold_at", *patch.SoldAt)
	}

	var row pgx.Row
	if len(sets) == 0 {
		row = s.pool.QueryRow(ctx, `SELECT `+garmentColumns+` FROM garments WHERE id = $1`, id)
	} else {
		query := fmt.Sprintf(`UPDATE garments SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), garmentColumns)
		row = s.pool.QueryRow(ctx, query, args...)
	}

	updated, err := scanGarment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGarmentNotFound
		}
		return nil, fmt.Errorf("failed to update garment: %w", err)
	}

	return updated, nil
}

// Delete removes a garment
func (s *garmentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM garments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete garment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrGarmentNotFound
	}

	return nil
}

func paymentTypeArg(t *domain.PaymentType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func scanGarment(row pgx.Row) (*domain.Garment, error) {
	var (
		garment     = &domain.Garment{}
		status      string
		paymentType *string
	)
	err := row.Scan(
		&garment.ID,
		&garment.SupplierID,
		&garment.UserID,
		&garment.Code,
		&garment.Name,
		&garment.Size,
		&garment.PurchasePrice,
		&garment.SalePrice,
		&garment.IsSold,
		&status,
		&paymentType,
		&garment.CreatedAt,
		&garment.SoldAt,
	)
	if err != nil {
		return nil, err
	}

	garment.PaymentStatus = domain.PaymentStatus(status)
	if paymentType != nil {
		t := domain.PaymentType(*paymentType)
		garment.PaymentType = &t
	}
	return garment, nil
}
