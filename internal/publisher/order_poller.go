package publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/fjod/go_store/internal/domain"
	"github.com/fjod/go_store/internal/repository"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the slice of kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OrderPlacedEvent is the payload announced for every committed
// commitment. CommitID is the consumer-side dedup key; delivery is
// at-least-once.
type OrderPlacedEvent struct {
	CommitID    string            `json:"commit_id"`
	BuyerEmail  string            `json:"buyer_email"`
	Lines       []domain.CartLine `json:"lines"`
	TotalAmount float64           `json:"total_amount"`
	CommittedAt time.Time         `json:"committed_at"`
}

// OrderPoller scans the commitment log for committed-but-unannounced
// commitments and publishes them. It also logs non-terminal commitments
// stuck past the recovery window so the external sweep has a trail.
type OrderPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	stuckAfter   time.Duration
	repo         repository.CommitmentRepository
	writer       MessageWriter
}

func NewOrderPoller(repo repository.CommitmentRepository, brokers ...string) *OrderPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "order-placed",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OrderPoller{time.Second, time.Second * 5, time.Minute, repo, w}
}

// NewOrderPollerWithWriter is the test seam.
func NewOrderPollerWithWriter(repo repository.CommitmentRepository, writer MessageWriter) *OrderPoller {
	return &OrderPoller{time.Second, time.Second * 5, time.Minute, repo, writer}
}

func (p *OrderPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublished(ctx)
		case <-recoveryTicker.C:
			p.reportStuck(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OrderPoller) processUnpublished(ctx context.Context) {
	commitments, err := p.repo.GetUnpublished(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch unpublished commitments: %v", err)
		return
	}

	for _, commit := range commitments {
		if errPublish := p.publish(ctx, commit); errPublish != nil {
			log.Printf("failed to publish commitment %v: %v", commit.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkPublished(ctx, commit.ID); errMark != nil {
			log.Printf("failed to mark commitment %v as published: %v", commit.ID, errMark)
			continue
		}
	}
}

func (p *OrderPoller) reportStuck(ctx context.Context) {
	cutoff := time.Now().Add(-p.stuckAfter)
	stuck, err := p.repo.ListStuck(ctx, cutoff)
	if err != nil {
		log.Printf("failed to list stuck commitments: %v", err)
		return
	}
	for _, commit := range stuck {
		log.Printf("stuck commitment %v for %v in status %v since %v, granted = %d",
			commit.ID, commit.BuyerEmail, commit.Status, commit.UpdatedAt, len(commit.Granted))
	}
}

func (p *OrderPoller) publish(ctx context.Context, commit *domain.Commitment) error {
	event := OrderPlacedEvent{
		CommitID:    commit.ID,
		BuyerEmail:  commit.BuyerEmail,
		Lines:       commit.Lines,
		TotalAmount: commit.Total,
		CommittedAt: commit.UpdatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(commit.ID), // commit id for partition ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order_placed")},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
