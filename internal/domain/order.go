package domain

import "time"

// Order is an immutable fact appended once per committed cart line.
// CommitID correlates it to the commitment attempt that produced it.
type Order struct {
	ID          string    `bson:"_id,omitempty"`
	CommitID    string    `bson:"commit_id"`
	Line        int32     `bson:"line"`
	BuyerEmail  string    `bson:"buyer_email"`
	ProductID   string    `bson:"product_id"`
	ProductName string    `bson:"prod_name"`
	Quantity    int32     `bson:"quantity"`
	TotalPrice  float64   `bson:"total_price"`
	CreatedAt   time.Time `bson:"created_at"`
}

// Payment records the amount owed to one seller for one committed line.
type Payment struct {
	ID          string    `bson:"_id,omitempty"`
	CommitID    string    `bson:"commit_id"`
	Line        int32     `bson:"line"`
	ProductID   string    `bson:"product_id"`
	BuyerEmail  string    `bson:"buyer_email"`
	SellerEmail string    `bson:"seller_email"`
	Amount      float64   `bson:"amount"`
	CreatedAt   time.Time `bson:"created_at"`
}
