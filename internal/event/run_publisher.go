package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"insurance-etl/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// RunEventsQueue carries pipeline lifecycle events for downstream
	// reporting consumers.
	RunEventsQueue = "etl_run_events"

	// UnmatchedFeesQueue carries the diagnostic list of late payments no
	// rule covered, for fee-policy review.
	UnmatchedFeesQueue = "etl_fee_unmatched"
)

// UnmatchedFeesEvent lists the fact rows flagged no-rule-matched in one run.
type UnmatchedFeesEvent struct {
	RunID   uuid.UUID `json:"run_id"`
	Count   int       `json:"count"`
	FactIDs []int64   `json:"fact_ids"`
}

// RunCompletedEvent is published when a pipeline run finishes, successfully
// or not.
type RunCompletedEvent struct {
	RunID         uuid.UUID              `json:"run_id"`
	Status        models.RunStatus       `json:"status"`
	Cleaning      *models.CleaningReport `json:"cleaning,omitempty"`
	FactsLoaded   int                    `json:"facts_loaded"`
	FeesComputed  int                    `json:"fees_computed"`
	UnmatchedFees int                    `json:"unmatched_fees"`
	CompletedAt   time.Time              `json:"completed_at"`
}

// RunPublisher publishes pipeline run events to RabbitMQ
type RunPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
}

// NewRunPublisher creates a new run event publisher
func NewRunPublisher(conn *RabbitMQConnection) *RunPublisher {
	return &RunPublisher{conn: conn}
}

// PublishRunCompleted publishes a run lifecycle event to the run events
// queue. Publishing failures are reported but never fail the run itself.
func (p *RunPublisher) PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error {
	_, err := p.conn.Channel.QueueDeclare(
		RunEventsQueue, // queue name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",             // exchange
		RunEventsQueue, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish run event: %w", err)
	}

	p.messagesPublished++

	slog.Info("Run event published",
		"queue", RunEventsQueue,
		"run_id", event.RunID,
		"status", event.Status,
		"unmatched_fees", event.UnmatchedFees,
	)

	return nil
}

// PublishUnmatchedFees publishes the no-rule-matched diagnostic for one run
// so fee-policy owners can close the rule gap.
func (p *RunPublisher) PublishUnmatchedFees(ctx context.Context, event UnmatchedFeesEvent) error {
	_, err := p.conn.Channel.QueueDeclare(
		UnmatchedFeesQueue, // queue name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal unmatched fees event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",                 // exchange
		UnmatchedFeesQueue, // routing key (queue name)
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish unmatched fees event: %w", err)
	}

	p.messagesPublished++

	slog.Info("Unmatched fees event published",
		"queue", UnmatchedFeesQueue,
		"run_id", event.RunID,
		"count", event.Count,
	)

	return nil
}
