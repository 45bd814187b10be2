package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/makbank/bankhub.go/db/models"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the entry stream needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// StartKafkaEntryPublisher streams committed ledger entries to Kafka until ctx is done.
// Messages are keyed by account id so one account's entries stay ordered within a partition.
func (svc *BankService) StartKafkaEntryPublisher(ctx context.Context, writer MessageWriter) error {
	entries := make(chan models.TransactionEntry, entrySubscriberBuffer)
	unsubscribe, err := svc.EntryPubSub.SubscribeAll(entries)
	if err != nil {
		return err
	}
	defer unsubscribe()

	svc.Logger.Info("Starting kafka ledger entry publisher")
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case entry := <-entries:
			if err := publishEntry(ctx, writer, entry); err != nil {
				svc.Logger.Errorf("Failed to publish ledger entry %d to kafka: %v", entry.ID, err)
				sentry.CaptureException(err)
			}
		}
	}
}

func publishEntry(ctx context.Context, writer MessageWriter, entry models.TransactionEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(entry.AccountID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "entry_type", Value: []byte(entry.Type)},
		},
	})
}
