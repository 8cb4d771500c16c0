package domain

import "time"

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

// Toggled flips between active and inactive.
func (s ProductStatus) Toggled() ProductStatus {
	if s == ProductActive {
		return ProductInactive
	}
	return ProductActive
}

type Product struct {
	ID          string
	SellerID    string
	Name        string
	Description string
	PriceCents  int64
	Stock       int
	Status      ProductStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProductFilter struct {
	SellerID string
	Status   ProductStatus
	Query    string
	Limit    int
}

func (f ProductFilter) Validate() error {
	if f.SellerID != "" {
		if err := ValidateID(f.SellerID); err != nil {
			return err
		}
	}
	switch f.Status {
	case "", ProductActive, ProductInactive:
	default:
		return ErrInvalidStatus
	}
	if len(f.Query) > 128 {
		return ErrInvalidFilter
	}
	return nil
}
