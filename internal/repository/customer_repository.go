package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/commerce-dashboard-api/internal/models"
)

// CustomerRepository persists customers and their sites.
type CustomerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// FindByEmail returns sql.ErrNoRows when no customer owns the address.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := r.db.Rebind(`SELECT customer_id, COALESCE(name, '') AS name, email, password, COALESCE(customer_category, '') AS customer_category FROM customers WHERE email = ? LIMIT 1`)
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find customer by email: %w", err)
	}
	return &customer, nil
}

// CreateWithSite inserts the customer and the linked site in one transaction.
// Generated ids are written back to both records.
func (r *CustomerRepository) CreateWithSite(ctx context.Context, customer *models.Customer, site *models.Site) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create customer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	customerID, err := insertReturningID(ctx, tx,
		`INSERT INTO customers (name, email, password, customer_category) VALUES (?, ?, ?, ?)`,
		"customer_id",
		customer.Name, customer.Email, customer.Password, customer.Category,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert customer: %w", err)
	}

	siteID, err := insertReturningID(ctx, tx,
		`INSERT INTO pages (site_url, site_name, site_category, site_tz, customer_id) VALUES (?, ?, ?, ?, ?)`,
		"site_id",
		site.URL, site.Name, site.Category, site.Timezone, customerID,
	)
	if err != nil {
		return fmt.Errorf("insert site: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create customer: %w", err)
	}

	customer.ID = customerID
	site.ID = siteID
	site.CustomerID = customerID
	return nil
}
