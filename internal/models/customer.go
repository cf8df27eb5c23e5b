package models

// Customer is a dashboard owner stored in the customers table.
type Customer struct {
	ID       int64  `db:"customer_id" json:"customer_id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Password string `db:"password" json:"-"`
	Category string `db:"customer_category" json:"customer_category"`
}

// Site is a storefront tracked for a customer, persisted in the pages table.
type Site struct {
	ID         int64   `db:"site_id" json:"site_id"`
	URL        string  `db:"site_url" json:"site_url"`
	Name       string  `db:"site_name" json:"site_name"`
	Category   *string `db:"site_category" json:"site_category,omitempty"`
	Timezone   string  `db:"site_tz" json:"site_tz"`
	CustomerID int64   `db:"customer_id" json:"customer_id"`
}
