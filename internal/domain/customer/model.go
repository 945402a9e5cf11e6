package customer

import (
	"github.com/subdesk/subdesk/internal/types"
)

// Customer is a person or company that owns subscriptions
type Customer struct {
	// ID is the unique identifier for the customer
	ID string `db:"id" json:"id"`

	// Name is the display name of the customer
	Name string `db:"name" json:"name"`

	// Email is the unique contact address of the customer
	Email string `db:"email" json:"email"`

	// Status is the lifecycle state. Setting it to INACTIVE deactivates
	// every subscription the customer owns.
	Status types.CustomerStatus `db:"status" json:"status"`

	types.BaseModel
}

// Stats summarizes the customer base for the management screens
type Stats struct {
	TotalCustomers        int `json:"total_customers"`
	ActiveCustomers       int `json:"active_customers"`
	NewCustomersThisMonth int `json:"new_customers_this_month"`
}
