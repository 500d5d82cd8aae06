package models

// ConversationSummary is the inbox view of one conversation: the most recent
// message for a distinct (publication, user pair), joined with the counterpart's
// display name and the publication title. It is computed per query, never stored.
type ConversationSummary struct {
	Message
	CounterpartName  string `json:"counterpart_name"`
	PublicationTitle string `json:"publication_title"`
}
