package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PriceTier struct {
	MinQty int   `json:"min_qty"`
	Price  int64 `json:"price"`
}

type Product struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ProductCode string      `json:"product_code"`
	Stock       int         `json:"stock"`
	PriceTiers  []PriceTier `json:"price_tiers"`
}

type Member struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Discount       decimal.Decimal `json:"discount"`
	MembershipType string          `json:"membership_type"`
	Phone          string          `json:"phone,omitempty"`
}

// IsGeneral reports whether m is the walk-in placeholder customer.
func (m Member) IsGeneral() bool {
	return m.MembershipType == MembershipGeneral
}

type Attendant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartLine is one product in the active cart. StockCeiling and PriceTiers are
// captured when the product is first added and do not follow later catalog changes.
type CartLine struct {
	ProductID    string      `json:"product_id"`
	Name         string      `json:"name"`
	ProductCode  string      `json:"product_code"`
	Quantity     int         `json:"quantity"`
	StockCeiling int         `json:"stock_ceiling"`
	PriceTiers   []PriceTier `json:"price_tiers"`
}

type CalculatedLine struct {
	CartLine
	OriginalPrice          int64 `json:"original_price"`
	PriceAfterItemDiscount int64 `json:"price_after_item_discount"`
	ItemDiscount           int64 `json:"item_discount"`
	Subtotal               int64 `json:"subtotal"`
}

type Calculation struct {
	Lines              []CalculatedLine `json:"lines"`
	SubTotal           int64            `json:"sub_total"`
	ItemDiscount       int64            `json:"item_discount"`
	MemberDiscount     decimal.Decimal  `json:"member_discount"`
	AdditionalDiscount decimal.Decimal  `json:"additional_discount"`
	TotalDiscount      decimal.Decimal  `json:"total_discount"`
	Tax                decimal.Decimal  `json:"tax"`
	GrandTotal         int64            `json:"grand_total"`
}

// SaleItem carries the tiered unit price and the per-unit discount against the
// single-unit price, both as computed by the terminal.
type SaleItem struct {
	ProductID     string `json:"product_id" validate:"required"`
	ProductName   string `json:"product_name,omitempty"`
	ProductCode   string `json:"product_code,omitempty"`
	Quantity      int    `json:"quantity" validate:"gte=1"`
	OriginalPrice int64  `json:"original_price" validate:"gte=0"`
	UnitPrice     int64  `json:"unit_price" validate:"gte=0"`
	UnitDiscount  int64  `json:"unit_discount" validate:"gte=0"`
	Subtotal      int64  `json:"subtotal" validate:"gte=0"`
}

type SaleTotals struct {
	SubTotal           int64           `json:"sub_total"`
	ItemDiscount       int64           `json:"item_discount"`
	MemberDiscount     decimal.Decimal `json:"member_discount"`
	AdditionalDiscount decimal.Decimal `json:"additional_discount"`
	TotalDiscount      decimal.Decimal `json:"total_discount"`
	Tax                decimal.Decimal `json:"tax"`
	GrandTotal         int64           `json:"grand_total"`
}

type SaleRequest struct {
	IdempotencyKey  string     `json:"idempotency_key" validate:"required"`
	TerminalID      string     `json:"terminal_id,omitempty"`
	CashierID       string     `json:"cashier_id" validate:"required"`
	AttendantID     string     `json:"attendant_id,omitempty"`
	MemberID        string     `json:"member_id,omitempty"`
	TransactionType string     `json:"transaction_type" validate:"oneof=PAID UNPAID"`
	Items           []SaleItem `json:"items" validate:"required,min=1,dive"`
	Totals          SaleTotals `json:"totals"`
	Payment         int64      `json:"payment" validate:"gte=0"`
	Change          int64      `json:"change" validate:"gte=0"`
}

type Sale struct {
	ID              string     `json:"id"`
	IdempotencyKey  string     `json:"idempotency_key"`
	TerminalID      string     `json:"terminal_id,omitempty"`
	CashierID       string     `json:"cashier_id"`
	AttendantID     string     `json:"attendant_id,omitempty"`
	MemberID        string     `json:"member_id,omitempty"`
	TransactionType string     `json:"transaction_type"`
	Items           []SaleItem `json:"items"`
	Totals          SaleTotals `json:"totals"`
	Payment         int64      `json:"payment"`
	Change          int64      `json:"change"`
	ReceivableID    string     `json:"receivable_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Duplicate       bool       `json:"duplicate,omitempty"`
}

// ReceiptData is everything a receipt printer needs for a paid sale.
type ReceiptData struct {
	SaleID        string           `json:"sale_id"`
	CreatedAt     time.Time        `json:"created_at"`
	CashierID     string           `json:"cashier_id"`
	AttendantName string           `json:"attendant_name,omitempty"`
	MemberName    string           `json:"member_name,omitempty"`
	Lines         []CalculatedLine `json:"lines"`
	Totals        SaleTotals       `json:"totals"`
	Payment       int64            `json:"payment"`
	Change        int64            `json:"change"`
}

type SuspendRequest struct {
	Label      string     `json:"label,omitempty" validate:"max=120"`
	Notes      string     `json:"notes,omitempty" validate:"max=500"`
	Lines      []CartLine `json:"lines" validate:"required,min=1"`
	MemberID   string     `json:"member_id,omitempty"`
	CashierID  string     `json:"cashier_id,omitempty"`
	TerminalID string     `json:"terminal_id,omitempty"`
}

type SuspendedSale struct {
	ID         string     `json:"id"`
	Label      string     `json:"label,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Lines      []CartLine `json:"lines"`
	MemberID   string     `json:"member_id,omitempty"`
	CashierID  string     `json:"cashier_id,omitempty"`
	TerminalID string     `json:"terminal_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Receivable struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	MemberName string    `json:"member_name"`
	SaleID     string    `json:"sale_id"`
	AmountDue  int64     `json:"amount_due"`
	AmountPaid int64     `json:"amount_paid"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r Receivable) Remaining() int64 {
	return r.AmountDue - r.AmountPaid
}

type ReceivablePayment struct {
	ID           string    `json:"id"`
	ReceivableID string    `json:"receivable_id"`
	Amount       int64     `json:"amount"`
	CashierID    string    `json:"cashier_id,omitempty"`
	PaidAt       time.Time `json:"paid_at"`
}

type ReceivablePaymentRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

type ReceivableFilter struct {
	Statuses   []string
	MemberName string
	Limit      int
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=4,max=64,alphanum"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin cashier warehouse manager"`
}

type UserView struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	TransactionPaid   = "PAID"
	TransactionUnpaid = "UNPAID"
)

const (
	ReceivableUnpaid  = "UNPAID"
	ReceivablePartial = "PARTIAL"
	ReceivablePaid    = "PAID"
)

// OpenReceivableStatuses are the statuses of receivables that still have a balance.
var OpenReceivableStatuses = []string{ReceivableUnpaid, ReceivablePartial}

// DefaultGeneralMemberID is the id of the seeded walk-in customer.
const DefaultGeneralMemberID = "member-general"

const (
	MembershipGeneral = "GENERAL"
	MembershipRegular = "REGULAR"
	MembershipGold    = "GOLD"
)

const (
	RoleAdmin     = "admin"
	RoleCashier   = "cashier"
	RoleWarehouse = "warehouse"
	RoleManager   = "manager"
)
