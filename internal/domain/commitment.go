package domain

import "time"

type CommitmentStatus string

const (
	CommitmentStatusStarted         CommitmentStatus = "STARTED"
	CommitmentStatusBalanceDebited  CommitmentStatus = "BALANCE_DEBITED"
	CommitmentStatusAllReserved     CommitmentStatus = "ALL_RESERVED"
	CommitmentStatusJournalAppended CommitmentStatus = "JOURNAL_APPENDED"
	CommitmentStatusCommitted       CommitmentStatus = "COMMITTED"
	CommitmentStatusCompensating    CommitmentStatus = "COMPENSATING"
	CommitmentStatusAborted         CommitmentStatus = "ABORTED"
)

var commitmentTransitions = map[CommitmentStatus][]CommitmentStatus{
	CommitmentStatusStarted:         {CommitmentStatusBalanceDebited, CommitmentStatusAborted},
	CommitmentStatusBalanceDebited:  {CommitmentStatusAllReserved, CommitmentStatusCompensating},
	CommitmentStatusAllReserved:     {CommitmentStatusJournalAppended, CommitmentStatusCompensating},
	CommitmentStatusJournalAppended: {CommitmentStatusCommitted},
	CommitmentStatusCompensating:    {CommitmentStatusAborted},
}

func CanTransitionTo(from, to CommitmentStatus) bool {
	for _, next := range commitmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CommitmentStatus) IsTerminal() bool {
	return s == CommitmentStatusCommitted || s == CommitmentStatusAborted
}

// String representation (for logging)
func (s CommitmentStatus) String() string {
	return string(s)
}

// GrantedReservation records one stock decrement already applied by an
// in-flight commitment, so a recovery sweep can release it if the process
// dies before the attempt reaches a terminal status.
type GrantedReservation struct {
	ProductID string `bson:"product_id" json:"product_id"`
	Quantity  int32  `bson:"quantity" json:"quantity"`
}

// Commitment is the persisted state of one order-placement attempt.
// ID doubles as the correlation id tagged onto journal appends.
type Commitment struct {
	ID         string               `bson:"_id"`
	BuyerEmail string               `bson:"buyer_email"`
	Status     CommitmentStatus     `bson:"status"`
	Lines      []CartLine           `bson:"lines"`
	Total      float64              `bson:"total"`
	Granted    []GrantedReservation `bson:"granted"`
	Published  bool                 `bson:"published"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}
