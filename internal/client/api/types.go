package api

type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
}

func (u User) Key() string { return u.ID }

func (u User) Banned() bool { return u.Status == "banned" }

type Product struct {
	ID          string `json:"id"`
	SellerID    string `json:"seller_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (p Product) Key() string { return p.ID }

type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Order struct {
	ID         string      `json:"id"`
	CustomerID string      `json:"customer_id"`
	Items      []OrderItem `json:"items"`
	TotalCents int64       `json:"total_cents"`
	Status     string      `json:"status"`
	CreatedAt  string      `json:"created_at"`
}

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

type AuditEvent struct {
	ID               int64  `json:"id"`
	EventID          string `json:"event_id"`
	AggregateType    string `json:"aggregate_type"`
	AggregateID      string `json:"aggregate_id"`
	AggregateVersion int64  `json:"aggregate_version"`
	Action           string `json:"action"`
	Actor            string `json:"actor"`
	OccurredAt       string `json:"occurred_at"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
}

type LoginReply struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Ack is a reply that carries only the server message.
type Ack struct {
	Message string `json:"message"`
}

// StatusReply carries the authoritative status after a toggle.
type StatusReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type RoleReply struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type UserQuery struct {
	Role   string
	Status string
	Query  string
	Limit  int
}

type ProductQuery struct {
	SellerID string
	Status   string
	Query    string
	Limit    int
}

type AuditQuery struct {
	AggregateType string
	AggregateID   string
	Action        string
	Limit         int
}
