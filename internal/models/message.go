package models

import "time"

// Message is one stored chat message between two users about a publication.
// Messages are append-only: once stored they are never edited or deleted.
type Message struct {
	ID            int64     `json:"id"`
	SenderID      int64     `json:"sender_id"`
	RecipientID   int64     `json:"recipient_id"`
	PublicationID int64     `json:"publication_id"`
	Content       string    `json:"content"`
	SentAt        time.Time `json:"sent_at"`
}
