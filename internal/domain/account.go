package domain

import "time"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

type Account struct {
	ID        string     `bson:"_id,omitempty"`
	Name      string     `bson:"name"`
	Email     string     `bson:"email"`
	Password  string     `bson:"pwd"`
	Role      Role       `bson:"role"`
	Phone     string     `bson:"phno,omitempty"`
	Address   string     `bson:"addr,omitempty"`
	Balance   float64    `bson:"balance"`
	Cart      []CartLine `bson:"cart"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// CartLine is one pending purchase intent. Price is snapshotted when the
// line is added so a later price change cannot alter the buyer's expected
// total; quantity is re-validated against live stock at commit time.
type CartLine struct {
	ProductID   string    `bson:"product_id" json:"product_id"`
	ProductName string    `bson:"product_name" json:"product_name"`
	Quantity    int32     `bson:"quantity" json:"quantity"`
	UnitPrice   float64   `bson:"unit_price" json:"unit_price"`
	SellerEmail string    `bson:"seller_email" json:"seller_email"`
	AddedAt     time.Time `bson:"added_at" json:"added_at"`
}

func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}
