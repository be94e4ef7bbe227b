package domain

import "time"

type Product struct {
	ID          string    `bson:"_id,omitempty"`
	Name        string    `bson:"name"`
	Price       float64   `bson:"price"`
	Quantity    int32     `bson:"quantity"`
	SellerEmail string    `bson:"seller_email"`
	CreatedAt   time.Time `bson:"created_at"`
}
