package domain

type Stats struct {
	Users          int64 `json:"users"`
	Customers      int64 `json:"customers"`
	Sellers        int64 `json:"sellers"`
	Admins         int64 `json:"admins"`
	BannedUsers    int64 `json:"banned_users"`
	Products       int64 `json:"products"`
	ActiveProducts int64 `json:"active_products"`
	Orders         int64 `json:"orders"`
	RevenueCents   int64 `json:"revenue_cents"`
}
