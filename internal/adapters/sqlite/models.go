package sqlite

import (
	"time"

	"github.com/atvirokodosprendimai/storefront/internal/core/domain"
)

type userModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	Email         string    `gorm:"column:email;not null"`
	Name          string    `gorm:"column:name;not null"`
	PasswordHash  string    `gorm:"column:password_hash;not null"`
	Role          string    `gorm:"column:role;not null"`
	Status        string    `gorm:"column:status;not null"`
	EmailVerified bool      `gorm:"column:email_verified;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (userModel) TableName() string {
	return "users"
}

type sessionModel struct {
	TokenHash string     `gorm:"column:token_hash;primaryKey"`
	UserID    string     `gorm:"column:user_id;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
}

func (sessionModel) TableName() string {
	return "sessions"
}

type verificationTokenModel struct {
	TokenHash string     `gorm:"column:token_hash;primaryKey"`
	UserID    string     `gorm:"column:user_id;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
}

func (verificationTokenModel) TableName() string {
	return "verification_tokens"
}

type productModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	SellerID    string    `gorm:"column:seller_id;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description;not null"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	Stock       int       `gorm:"column:stock;not null"`
	Status      string    `gorm:"column:status;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (productModel) TableName() string {
	return "products"
}

type orderModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	CustomerID string    `gorm:"column:customer_id;not null"`
	TotalCents int64     `gorm:"column:total_cents;not null"`
	Status     string    `gorm:"column:status;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (orderModel) TableName() string {
	return "orders"
}

type orderItemModel struct {
	ID             int64  `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID        string `gorm:"column:order_id;not null"`
	ProductID      string `gorm:"column:product_id;not null"`
	Quantity       int    `gorm:"column:quantity;not null"`
	UnitPriceCents int64  `gorm:"column:unit_price_cents;not null"`
}

func (orderItemModel) TableName() string {
	return "order_items"
}

func toUserDomain(m userModel) domain.User {
	return domain.User{
		ID:            m.ID,
		Email:         m.Email,
		Name:          m.Name,
		PasswordHash:  m.PasswordHash,
		Role:          domain.Role(m.Role),
		Status:        domain.UserStatus(m.Status),
		EmailVerified: m.EmailVerified,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromUserDomain(u domain.User) userModel {
	return userModel{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		PasswordHash:  u.PasswordHash,
		Role:          string(u.Role),
		Status:        string(u.Status),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toProductDomain(m productModel) domain.Product {
	return domain.Product{
		ID:          m.ID,
		SellerID:    m.SellerID,
		Name:        m.Name,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		Stock:       m.Stock,
		Status:      domain.ProductStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromProductDomain(p domain.Product) productModel {
	return productModel{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// userSnapshot is the audit representation of a user; credentials never enter
// the audit trail.
type userSnapshot struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`
}

func snapshotUser(u domain.User) userSnapshot {
	return userSnapshot{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          string(u.Role),
		Status:        string(u.Status),
		EmailVerified: u.EmailVerified,
	}
}

type productSnapshot struct {
	ID          string `json:"id"`
	SellerID    string `json:"seller_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	Status      string `json:"status"`
}

func snapshotProduct(p domain.Product) productSnapshot {
	return productSnapshot{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		Status:      string(p.Status),
	}
}
