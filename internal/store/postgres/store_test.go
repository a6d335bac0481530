package postgres

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"consigna/internal/config"
	"consigna/internal/database"
	"consigna/internal/domain"
	"consigna/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var (
	testPool   *pgxpool.Pool
	testUserID string
)

func setupTestDB() (func(context.Context) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
		ctx    = context.Background()
	)

	dbContainer, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testPool, err = database.Open(ctx, config.DatabaseConfig{URL: connStr})
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(ctx, database.SQLDB(testPool), "../../../migrations", zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	identity := &domain.AuthIdentity{Email: "owner@test.com", Provider: domain.ProviderEmail}
	if err := NewIdentityStore(testPool).Create(ctx, identity); err != nil {
		return dbContainer.Terminate, err
	}
	user := &domain.User{AuthID: identity.ID, Email: identity.Email, Name: "Owner", Role: domain.RoleAdmin}
	if err := NewUserStore(testPool).Create(ctx, user); err != nil {
		return dbContainer.Terminate, err
	}
	testUserID = user.ID

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if testPool != nil {
		testPool.Close()
	}
	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func cleanTables(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `DELETE FROM garments; DELETE FROM suppliers;`); err != nil {
		t.Fatalf("Failed to clean tables: %v", err)
	}
}

func TestMigrationsAllApplied(t *testing.T) {
	states, err := database.MigrationStatus(context.Background(), database.SQLDB(testPool), "../../../migrations")
	if err != nil {
		t.Fatalf("Failed to read migration status: %v", err)
	}
	if len(states) != 5 {
		t.Fatalf("expected 5 migrations, got %d", len(states))
	}
	for _, s := range states {
		if !s.Applied {
			t.Errorf("migration %d (%s) still pending", s.Version, s.File)
		}
	}
}

func TestSupplierStoreListsByName(t *testing.T) {
	cleanTables(t)
	ctx := context.Background()
	suppliers := NewSupplierStore(testPool)

	for _, name := range []string{"Zoe", "Ana", "Marta"} {
		_, err := suppliers.Insert(ctx, &domain.Supplier{Name: name, Surname: "Test", Phone: "3816345678", UserID: testUserID})
		if err != nil {
			t.Fatalf("Failed to insert supplier %s: %v", name, err)
		}
	}

	list, err := suppliers.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list suppliers: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 suppliers, got %d", len(list))
	}
	for i, want := range []string{"Ana", "Marta", "Zoe"} {
		if list[i].Name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].Name)
		}
	}
}

func TestSupplierStoreUpdateAndDelete(t *testing.T) {
	cleanTables(t)
	ctx := context.Background()
	suppliers := NewSupplierStore(testPool)

	created, err := suppliers.Insert(ctx, &domain.Supplier{Name: "Ana", Surname: "Paz", Phone: "3816345678", UserID: testUserID})
	if err != nil {
		t.Fatalf("Failed to insert supplier: %v", err)
	}

	phone := "38384743147"
	updated, err := suppliers.Update(ctx, created.ID, domain.SupplierPatch{Phone: &phone})
	if err != nil {
		t.Fatalf("Failed to update supplier: %v", err)
	}
	if updated.Phone != phone || updated.Name != "Ana" {
		t.Errorf("unexpected row after update: %+v", updated)
	}

	if err := suppliers.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Failed to delete supplier: %v", err)
	}
	if err := suppliers.Delete(ctx, created.ID); !errors.Is(err, domain.ErrSupplierNotFound) {
		t.Errorf("expected ErrSupplierNotFound on second delete, got %v", err)
	}
}

func TestGarmentStoreRoundTrip(t *testing.T) {
	cleanTables(t)
	ctx := context.Background()
	suppliers := NewSupplierStore(testPool)
	garments := NewGarmentStore(testPool)

	supplier, err := suppliers.Insert(ctx, &domain.Supplier{Name: "Ana", Surname: "Paz", Phone: "3816345678", UserID: testUserID})
	if err != nil {
		t.Fatalf("Failed to insert supplier: %v", err)
	}

	older, err := garments.Insert(ctx, &domain.Garment{
		SupplierID:    &supplier.ID,
		UserID:        testUserID,
		Code:          "A-1",
		Name:          "Campera",
		Size:          "M",
		PurchasePrice: decimal.RequireFromString("1000.50"),
		SalePrice:     decimal.RequireFromString("2500.00"),
		CreatedAt:     time.Now().Add(-time.Hour).UTC(),
	})
	if err != nil {
		t.Fatalf("Failed to insert garment: %v", err)
	}
	if older.PaymentStatus != domain.PaymentNotAvailable || older.IsSold {
		t.Errorf("unexpected defaults: %+v", older)
	}
	if !older.PurchasePrice.Equal(decimal.RequireFromString("1000.50")) {
		t.Errorf("purchase price = %s", older.PurchasePrice)
	}

	newer, err := garments.Insert(ctx, &domain.Garment{UserID: testUserID, Code: "B-1", Name: "Remera"})
	if err != nil {
		t.Fatalf("Failed to insert garment: %v", err)
	}
	if newer.SupplierID != nil {
		t.Errorf("expected nil supplier id, got %v", *newer.SupplierID)
	}

	list, err := garments.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list garments: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first, got %v", list)
	}

	soldAt := time.Now().UTC().Truncate(time.Microsecond)
	sold, err := garments.Update(ctx, older.ID, domain.SalePatch(domain.PaymentDebit, soldAt))
	if err != nil {
		t.Fatalf("Failed to mark garment sold: %v", err)
	}
	if !sold.IsSold || sold.PaymentStatus != domain.PaymentPending {
		t.Errorf("sale not persisted: %+v", sold)
	}
	if sold.PaymentType == nil || *sold.PaymentType != domain.PaymentDebit {
		t.Errorf("payment type not persisted: %v", sold.PaymentType)
	}
	if sold.SoldAt == nil || !sold.SoldAt.Equal(soldAt) {
		t.Errorf("sold_at = %v, want %v", sold.SoldAt, soldAt)
	}

	if _, err := garments.Update(ctx, "00000000-0000-0000-0000-000000000000", domain.PaidPatch()); !errors.Is(err, domain.ErrGarmentNotFound) {
		t.Errorf("expected ErrGarmentNotFound, got %v", err)
	}
}

func TestHubDeliversTableChanges(t *testing.T) {
	cleanTables(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(testPool, zap.NewNop())
	go hub.Run(ctx)

	received := make(chan store.Change, 4)
	sub, err := hub.Subscribe(ctx, "inventory-test", []store.Binding{
		{Table: store.TableSuppliers, Mask: store.MaskAll},
	}, func(c store.Change) { received <- c })
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer hub.Unsubscribe(sub)

	if _, err := hub.Subscribe(ctx, "inventory-test", nil, func(store.Change) {}); !errors.Is(err, store.ErrSubscriptionExists) {
		t.Errorf("expected duplicate name to be rejected, got %v", err)
	}

	// the LISTEN may not be active yet; retry the insert until a notification arrives
	deadline := time.After(10 * time.Second)
	for {
		_, err := NewSupplierStore(testPool).Insert(ctx, &domain.Supplier{Name: "Hub", Surname: "Test", Phone: "3816345678", UserID: testUserID})
		if err != nil {
			t.Fatalf("Failed to insert supplier: %v", err)
		}

		select {
		case c := <-received:
			if c.Table != store.TableSuppliers || c.Event != store.EventInsert {
				t.Errorf("unexpected change: %+v", c)
			}
			return
		case <-time.After(500 * time.Millisecond):
		case <-deadline:
			t.Fatal("no change notification received")
		}
	}
}

func TestHubSubscriptionsSurviveRestart(t *testing.T) {
	cleanTables(t)
	hub := NewHub(testPool, zap.NewNop())

	received := make(chan store.Change, 4)
	sub, err := hub.Subscribe(context.Background(), "inventory-restart", []store.Binding{
		{Table: store.TableSuppliers, Mask: store.MaskAll},
	}, func(c store.Change) { received <- c })
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer hub.Unsubscribe(sub)

	first, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(first) }()
	stop()
	if err := <-done; err != nil {
		t.Fatalf("expected a clean stop, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	deadline := time.After(10 * time.Second)
	for {
		_, err := NewSupplierStore(testPool).Insert(ctx, &domain.Supplier{Name: "Again", Surname: "Test", Phone: "3816345678", UserID: testUserID})
		if err != nil {
			t.Fatalf("Failed to insert supplier: %v", err)
		}

		select {
		case c := <-received:
			if c.Table != store.TableSuppliers {
				t.Errorf("unexpected change: %+v", c)
			}
			return
		case <-time.After(500 * time.Millisecond):
		case <-deadline:
			t.Fatal("no change notification after restart")
		}
	}
}

func TestDecodeChange(t *testing.T) {
	c, err := decodeChange(`{"event":"DELETE","table":"garments","payload":{"id":"x"}}`)
	if err != nil {
		t.Fatalf("decodeChange failed: %v", err)
	}
	if c.Event != store.EventDelete || c.Table != store.TableGarments {
		t.Errorf("unexpected change: %+v", c)
	}

	if _, err := decodeChange(`{"event":"TRUNCATE","table":"garments"}`); err == nil {
		t.Error("expected unknown event to fail")
	}
	if _, err := decodeChange(`not json`); err == nil {
		t.Error("expected malformed payload to fail")
	}
}
