// Package events handles event emission for match and conversation lifecycle
// changes. Emission is best-effort: publish failures are logged but never fail
// the originating request.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/PixieStack/indulge/pkg/kafka"
	"github.com/PixieStack/indulge/pkg/models"
	"github.com/PixieStack/indulge/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter. A nil producer disables emission.
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitMatchCreated emits a match.created event
func (e *Emitter) EmitMatchCreated(ctx context.Context, match *models.Match) {
	if e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchCreated")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"match_context":  match.MatchContext,
		"created_at":     match.CreatedAt,
	})

	event := &kafka.InteractionEvent{
		EventType: "match.created",
		MatchID:   match.ID,
		User1ID:   match.User1ID,
		User2ID:   match.User2ID,
		Data:      data,
	}

	if err := e.producer.PublishInteractionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.created event")
	}
}

// EmitMessageSent emits a message.sent event
func (e *Emitter) EmitMessageSent(ctx context.Context, match *models.Match, message *models.Message) {
	if e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMessageSent")
	defer span.End()

	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"message_id":     message.ID,
		"sender_id":      message.SenderID,
		"receiver_id":    message.ReceiverID,
		"view_once":      message.ViewOnce,
		"created_at":     message.CreatedAt,
	})

	event := &kafka.InteractionEvent{
		EventType: "message.sent",
		MatchID:   match.ID,
		User1ID:   match.User1ID,
		User2ID:   match.User2ID,
		Data:      data,
	}

	if err := e.producer.PublishInteractionEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit message.sent event")
	}
}
