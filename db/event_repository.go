package db

import (
	"context"
	"encoding/json"
	"fmt"

	"allocator/entities"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// EventRepository is the data lake: every published event, stored once.
type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) EventRepository {
	if db == nil {
		panic("db is nil")
	}
	return EventRepository{
		db: db,
	}
}

func (e EventRepository) Store(ctx context.Context, header entities.EventHeader, eventName string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error marshaling event %w", err)
	}

	_, err = e.db.Conn.ExecContext(ctx, `
		INSERT INTO 
		    events (event_id, published_at, event_name, event_payload)
		VALUES
			 ($1, $2, $3, $4)
`, header.ID, header.PublishedAt, eventName, payload)
	if isErrorUniqueViolation(err) {
		// redelivered event
		log.FromContext(ctx).WithField("event_id", header.ID).Debug("Event already stored")
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not store event: %w", err)
	}

	return nil
}
