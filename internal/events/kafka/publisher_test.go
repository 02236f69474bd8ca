package kafka

import (
	"strings"
	"testing"
	"time"

	"money/internal/core"
	"money/internal/events"
)

func TestMessage(t *testing.T) {
	at := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	tx := core.Transaction{ID: 1, Kind: core.Income, Amount: core.Money{Cents: 100}, Description: "Tip"}

	msg, err := message(events.NewTransactionAdded(tx, core.Money{Cents: 100}, at))
	if err != nil {
		t.Fatalf("message() error = %v", err)
	}
	if string(msg.Key) != "ledger" {
		t.Errorf("Key = %q, want ledger", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", msg.Time, at)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "transaction.added" {
		t.Errorf("Headers = %+v", msg.Headers)
	}
	if !strings.Contains(string(msg.Value), `"description":"Tip"`) {
		t.Errorf("Value = %s", msg.Value)
	}
}

func TestNewPublisherTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "money.ledger")
	defer p.Close()
	if p.writer.Topic != "money.ledger" {
		t.Errorf("Topic = %q", p.writer.Topic)
	}
}
