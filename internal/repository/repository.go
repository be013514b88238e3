package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DanielAlexandrow/next-ecommerce-sub001/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrSubproductNotFound = errors.New("subproduct not found")
	ErrCartNotFound       = errors.New("cart not found")
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInsufficientStock  = errors.New("insufficient stock")

	// ErrTxConflict signals row-lock or serialization contention during
	// checkout; the caller retries a bounded number of times.
	ErrTxConflict = errors.New("transaction conflict")
)

// InsufficientStockError identifies which subproduct could not cover the
// requested quantity. errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	SubproductID int64
	Requested    int
	Available    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for subproduct %d: requested %d, available %d",
		e.SubproductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// CatalogRepository resolves a purchasable variant to its current catalog
// state: base price, stock, owning product, category and brand memberships.
type CatalogRepository interface {
	GetLineItem(ctx context.Context, subproductID int64) (*domain.LineItem, error)
}

// DealRepository exposes deals effective at a given instant, filtered by
// scope kind. Read-only.
type DealRepository interface {
	GetActiveDeals(ctx context.Context, at time.Time, kinds ...domain.DealKind) ([]domain.Deal, error)
}

type CartRepository interface {
	GetCart(ctx context.Context, cartID int64) (*domain.Cart, error)
	GetCartByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	CreateCart(ctx context.Context, userID int64, currency string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, subproductID int64, quantity int) error
	UpdateItemQuantity(ctx context.Context, cartID, subproductID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID, subproductID int64) error
	DeleteCart(ctx context.Context, cartID int64) error
	UpdateCartTotal(ctx context.Context, cartID int64, total decimal.Decimal) error
}

type OrderRepository interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID int64) ([]*domain.Order, error)
}

// CheckoutRepository commits a checkout atomically: stock validation and
// decrement, order insert, outbox event and cart removal in one transaction.
type CheckoutRepository interface {
	FinalizeCheckout(ctx context.Context, cartID int64, order *domain.Order) error
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// isSerializationFailure reports postgres serialization or deadlock
// failures (40001, 40P01), the retryable class of checkout errors.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
