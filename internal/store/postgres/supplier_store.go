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

const supplierColumns = `id, name, surname, phone, user_id, created_at`

type supplierStore struct {
	pool *pgxpool.Pool
}

// NewSupplierStore creates a SupplierStore backed by the suppliers table
func NewSupplierStore(pool *pgxpool.Pool) store.SupplierStore {
	return &supplierStore{pool: pool}
}

// List retrieves every supplier ordered by name
func (s *supplierStore) List(ctx context.Context) ([]*domain.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := []*domain.Supplier{}
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suppliers: %w", err)
	}

	return suppliers, nil
}

// Insert stores a new supplier and returns the row as persisted
func (s *supplierStore) Insert(ctx context.Context, supplier *domain.Supplier) (*domain.Supplier, error) {
	if supplier.ID == "" {
		supplier.ID = uuid.New().String()
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO suppliers (id, name, surname, phone, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + supplierColumns

	created, err := scanSupplier(s.pool.QueryRow(
		ctx,
		query,
		supplier.ID,
		supplier.Name,
		supplier.Surname,
		supplier.Phone,
		supplier.UserID,
		supplier.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}

	return created, nil
}

// Update changes the non-nil fields of patch
func (s *supplierStore) Update(ctx context.Context, id string, patch domain.SupplierPatch) (*domain.Supplier, error) {
	sets := []string{}
	args := []interface{}{id}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Surname != nil {
		add("surname", *patch.Surname)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}

	var row pgx.Row
	if len(sets) == 0 {
		row = s.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id)
	} else {
		query := fmt.Sprintf(`UPDATE suppliers SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), supplierColumns)
		row = s.pool.QueryRow(ctx, query, args...)
	}

	updated, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSupplierNotFound
		}
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}

	return updated, nil
}

// Delete removes a supplier
func (s *supplierStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSupplierNotFound
	}

	return nil
}

func scanSupplier(row pgx.Row) (*domain.Supplier, error) {
	supplier := &domain.Supplier{}
	err := row.Scan(
		&supplier.ID,
		&supplier.Name,
		&supplier.Surname,
		&supplier.Phone,
		&supplier.UserID,
		&supplier.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return supplier, nil
}
