package store

import (
	"context"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestAppendValidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name              string
		sender, recipient int64
		publication       int64
		content           string
	}{
		{"empty content", 1, 2, 42, ""},
		{"whitespace content", 1, 2, 42, "   \t\n"},
		{"missing sender", 0, 2, 42, "hola"},
		{"missing recipient", 1, 0, 42, "hola"},
		{"missing publication", 1, 2, 0, "hola"},
		{"self send", 1, 1, 42, "hola"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := st.Append(ctx, c.sender, c.recipient, c.publication, c.content)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestAppendMonotonic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 10; i++ {
		msg, err := st.Append(ctx, 1, 2, 42, "m")
		if err != nil {
			t.Fatal(err)
		}
		if msg.ID <= lastID {
			t.Fatalf("id %d not greater than previous %d", msg.ID, lastID)
		}
		lastID = msg.ID
	}

	messages, err := st.ListBetween(ctx, 42, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(messages); i++ {
		if !messages[i].SentAt.After(messages[i-1].SentAt) {
			t.Fatalf("sent_at not strictly increasing at position %d", i)
		}
	}
}

func TestListBetweenCompleteness(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Alternating exchange between 1 and 2 about publication 42
	contents := []string{"a", "b", "c", "d"}
	for i, c := range contents {
		sender, recipient := int64(1), int64(2)
		if i%2 == 1 {
			sender, recipient = 2, 1
		}
		if _, err := st.Append(ctx, sender, recipient, 42, c); err != nil {
			t.Fatal(err)
		}
	}

	// Noise: different publication, different pair
	if _, err := st.Append(ctx, 1, 2, 99, "other publication"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Append(ctx, 1, 3, 42, "other pair"); err != nil {
		t.Fatal(err)
	}

	messages, err := st.ListBetween(ctx, 42, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != len(contents) {
		t.Fatalf("expected %d messages, got %d", len(contents), len(messages))
	}
	for i, m := range messages {
		if m.Content != contents[i] {
			t.Errorf("position %d: expected %q, got %q", i, contents[i], m.Content)
		}
	}

	// Order of the user pair must not matter
	reversed, err := st.ListBetween(ctx, 42, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(reversed) != len(messages) {
		t.Fatalf("pair order changed the result: %d vs %d", len(reversed), len(messages))
	}
}

func TestListBetweenEmpty(t *testing.T) {
	st := newTestStore(t)

	messages, err := st.ListBetween(context.Background(), 42, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if messages == nil || len(messages) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", messages)
	}
}

func TestListConversationsDedup(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.InsertUser(ctx, 2, "Yolanda"); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertUser(ctx, 3, "Zenón"); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertPublication(ctx, 42, "Usado: portátil"); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertPublication(ctx, 7, "Usado: móvil"); err != nil {
		t.Fatal(err)
	}

	// Conversation (42, 1-2): two messages, latest is "second"
	if _, err := st.Append(ctx, 1, 2, 42, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Append(ctx, 2, 1, 42, "second"); err != nil {
		t.Fatal(err)
	}
	// Conversation (7, 1-3): one message
	if _, err := st.Append(ctx, 1, 3, 7, "hey"); err != nil {
		t.Fatal(err)
	}

	summaries, err := st.ListConversations(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}

	// Most recent conversation first
	if summaries[0].Content != "hey" {
		t.Fatalf("expected latest conversation first, got %q", summaries[0].Content)
	}
	if summaries[0].CounterpartName != "Zenón" {
		t.Errorf("expected counterpart name Zenón, got %q", summaries[0].CounterpartName)
	}
	if summaries[0].PublicationTitle != "Usado: móvil" {
		t.Errorf("expected publication title, got %q", summaries[0].PublicationTitle)
	}

	if summaries[1].Content != "second" {
		t.Fatalf("expected latest message of group, got %q", summaries[1].Content)
	}
	if summaries[1].CounterpartName != "Yolanda" {
		t.Errorf("expected counterpart name Yolanda, got %q", summaries[1].CounterpartName)
	}
}

func TestListConversationsInvisibleToThirdParty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.Append(ctx, 1, 2, 42, "between 1 and 2"); err != nil {
		t.Fatal(err)
	}

	summaries, err := st.ListConversations(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 0 {
		t.Fatalf("user 3 should have no conversations, got %d", len(summaries))
	}
}

func TestListConversationsMissingCollaborators(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// No users/publications rows at all: the summary must still appear.
	if _, err := st.Append(ctx, 1, 2, 42, "hola"); err != nil {
		t.Fatal(err)
	}

	summaries, err := st.ListConversations(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].CounterpartName != "" || summaries[0].PublicationTitle != "" {
		t.Fatalf("expected empty joined fields, got %+v", summaries[0])
	}
}
