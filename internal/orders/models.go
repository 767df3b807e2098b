package orders

import "time"

type Order struct {
	ID                string
	BuyerID           string
	SellerID          string
	ShopID            string
	ShippingAddressID string
	BillingAddressID  string
	TotalAmount       int64
	Currency          string
	Status            Status
	PlacedAt          time.Time
	UpdatedAt         time.Time
}

// Item is immutable once inserted.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	SKU       string
	UnitPrice int64
	Quantity  int
	LineTotal int64
	TaxAmount int64
	CreatedAt time.Time
}

type StatusHistory struct {
	ID        string
	OrderID   string
	Status    Status
	ActorID   string
	Note      string
	CreatedAt time.Time
}

type Address struct {
	ID         string
	UserID     string
	Kind       string
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
	CreatedAt  time.Time
}

const (
	AddressKindShipping = "shipping"
	AddressKindBilling  = "billing"
)
