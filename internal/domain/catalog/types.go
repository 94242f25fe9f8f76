// Package catalog holds the pharmacy business records the client caches
// locally: products, orders and the store profile.
package catalog

import "time"

// Product is an inventory item.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	GenericName  string    `json:"genericName,omitempty"`
	Manufacturer string    `json:"manufacturer"`
	MRP          float64   `json:"mrp"`
	SellingPrice float64   `json:"sellingPrice"`
	Stock        int       `json:"stock"`
	MinStock     int       `json:"minStock"`
	Unit         string    `json:"unit"`
	ExpiryDate   string    `json:"expiryDate"`
	BatchNumber  string    `json:"batchNumber"`
	Barcode      string    `json:"barcode,omitempty"`
	Category     string    `json:"category"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// LowStock reports whether stock is at or below the reorder threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Order is a customer order.
type Order struct {
	ID            string      `json:"id"`
	OrderNumber   string      `json:"orderNumber"`
	Customer      Customer    `json:"customer"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Discount      float64     `json:"discount"`
	Tax           float64     `json:"tax"`
	TotalAmount   float64     `json:"totalAmount"`
	PaymentMethod string      `json:"paymentMethod"`
	PaymentStatus string      `json:"paymentStatus"`
	Status        OrderStatus `json:"status"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"createdAt,omitzero"`
	UpdatedAt     time.Time   `json:"updatedAt,omitzero"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

// Customer is the buyer on an order.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// StoreProfile is the pharmacy's public profile.
type StoreProfile struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	OwnerName         string  `json:"ownerName"`
	Phone             string  `json:"phone"`
	Email             string  `json:"email,omitempty"`
	Address           string  `json:"address"`
	City              string  `json:"city"`
	State             string  `json:"state"`
	Pincode           string  `json:"pincode"`
	GSTNumber         string  `json:"gstNumber,omitempty"`
	DrugLicenseNumber string  `json:"drugLicenseNumber,omitempty"`
	LogoURL           string  `json:"logoUrl,omitempty"`
	Rating            float64 `json:"rating"`
	ReviewCount       int     `json:"reviewCount"`
}

// Page is a paginated list response.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// DefaultPageSize is the page size requested when none is given.
const DefaultPageSize = 20
