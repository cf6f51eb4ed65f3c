package repository

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// messageRecord is the stored JSON shape of one thread message.
type messageRecord struct {
	ID          int       `json:"id"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"authorEmail"`
	Body        string    `json:"body"`
	Kind        string    `json:"kind"`
	SentAt      time.Time `json:"sentAt"`
}

func encodeMessages(messages []domain.TicketMessage) ([]byte, error) {
	records := make([]messageRecord, 0, len(messages))
	for _, msg := range messages {
		records = append(records, messageRecord{
			ID:          msg.ID,
			Author:      msg.Author,
			AuthorEmail: msg.AuthorEmail,
			Body:        msg.Body,
			Kind:        string(msg.Kind),
			SentAt:      msg.SentAt.UTC(),
		})
	}
	return json.Marshal(records)
}

func decodeMessages(data []byte) ([]domain.TicketMessage, error) {
	if len(data) == 0 {
		return []domain.TicketMessage{}, nil
	}
	var records []messageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	messages := make([]domain.TicketMessage, 0, len(records))
	for _, rec := range records {
		messages = append(messages, domain.TicketMessage{
			ID:          rec.ID,
			Author:      rec.Author,
			AuthorEmail: rec.AuthorEmail,
			Body:        rec.Body,
			Kind:        domain.MessageKind(rec.Kind),
			SentAt:      rec.SentAt.UTC(),
		})
	}
	return messages, nil
}
