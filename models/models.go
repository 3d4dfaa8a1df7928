package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus is the host order lifecycle state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPublished OrderStatus = "publish"
	StatusFailed    OrderStatus = "failed"
	StatusRefunded  OrderStatus = "refunded"
)

// Order represents a purchase record in the store
type Order struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PurchaseKey    string          `gorm:"type:varchar(64);uniqueIndex" json:"purchase_key"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Tax            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	Currency       string          `gorm:"type:varchar(10);not null" json:"currency"`
	Email          string          `gorm:"type:varchar(255)" json:"email"`
	FirstName      string          `gorm:"type:varchar(255)" json:"first_name"`
	LastName       string          `gorm:"type:varchar(255)" json:"last_name"`
	Status         OrderStatus     `gorm:"type:varchar(20);index;not null" json:"status"`
	TransactionRef *string         `gorm:"type:varchar(255)" json:"transaction_ref,omitempty"`
	Items          []LineItem      `gorm:"foreignKey:OrderID" json:"items"`
	Notes          []OrderNote     `gorm:"foreignKey:OrderID" json:"notes,omitempty"`
	PurchasedAt    time.Time       `json:"purchased_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns an identifier when the caller did not.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// LineItem is one cart entry
type LineItem struct {
	ID       uint            `gorm:"primaryKey" json:"-"`
	OrderID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"-"`
	Name     string          `gorm:"type:varchar(255);not null" json:"name" binding:"required"`
	Quantity int             `gorm:"not null" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"item_price"`
	Discount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
}

// OrderNote is a diagnostic note attached to an order
type OrderNote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	OrderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OrderUpdate carries the fields the gateway is allowed to change on an order.
// Zero values leave the corresponding column untouched. When UnlessStatus is
// set the update only applies to an order that is not in that status.
type OrderUpdate struct {
	Status         OrderStatus
	TransactionRef *string
	Note           string
	UnlessStatus   OrderStatus
}

// BuyerInfo is the subset of buyer details the storefront forwards
type BuyerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PurchaseData is the normalized purchase handed over by the storefront checkout
type PurchaseData struct {
	Price       decimal.Decimal `json:"price"`
	Tax         decimal.Decimal `json:"tax"`
	Date        time.Time       `json:"date"`
	Email       string          `json:"user_email" binding:"required"`
	PurchaseKey string          `json:"purchase_key"`
	Currency    string          `json:"currency"`
	CartDetails []LineItem      `json:"cart_details" binding:"dive"`
	UserInfo    BuyerInfo       `json:"user_info"`
}

// GatewayLabels is how the gateway is shown to admins and buyers
type GatewayLabels struct {
	AdminLabel    string `json:"admin_label"`
	CheckoutLabel string `json:"checkout_label"`
}

// SettingField is one entry of the gateway settings schema
type SettingField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
	Type string `json:"type"`
	Size string `json:"size,omitempty"`
}
