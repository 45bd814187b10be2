package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	"github.com/makbank/bankhub.go/db/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool is a classic buffer pool pattern that allows more clever reuse of heap memory.
// Instead of allocating new memory everytime we need to encode a notification we
// reuse buffers from this buffer pool.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	WelcomeRoutingKey = "email.welcome"
	welcomeSubject    = "Account Created Successfully"
)

type Client interface {
	SendWelcome(ctx context.Context, account models.Account) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	notificationExchange string

	mu               sync.Mutex
	exchangeDeclared bool
}

type ClientOption = func(client *DefaultClient)

func WithNotificationExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.notificationExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

func NewClient(amqpClient AMQPClient, options ...ClientOption) (Client, error) {
	client := &DefaultClient{
		amqpClient: amqpClient,

		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		notificationExchange: "bank_notifications",
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

// WelcomeMessage is the payload consumed by the mailer.
type WelcomeMessage struct {
	AccountID     int64  `json:"accountId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AccountNumber string `json:"accountNumber"`
	Balance       int64  `json:"balance"`
	Subject       string `json:"subject"`
	Text          string `json:"text"`
}

func NewWelcomeMessage(account models.Account) WelcomeMessage {
	return WelcomeMessage{
		AccountID:     account.ID,
		Name:          account.Name,
		Email:         account.Email,
		AccountNumber: account.AccountNumber,
		Balance:       account.Balance,
		Subject:       welcomeSubject,
		Text: fmt.Sprintf("Hello %s,\n\nYour account has been created.\nAccount Number: %s\nBalance: %d",
			account.Name, account.AccountNumber, account.Balance),
	}
}

func (client *DefaultClient) SendWelcome(ctx context.Context, account models.Account) error {
	if err := client.declareExchange(); err != nil {
		captureErr(client.logger, err)
		return err
	}

	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)
	if err := json.NewEncoder(payload).Encode(NewWelcomeMessage(account)); err != nil {
		return err
	}

	err := client.amqpClient.PublishWithContext(ctx,
		client.notificationExchange,
		WelcomeRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		captureErr(client.logger, err)
		return err
	}

	client.logger.Debugf("Successfully published welcome notification for account %d", account.ID)
	return nil
}

func (client *DefaultClient) declareExchange() error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.exchangeDeclared {
		return nil
	}
	err := client.amqpClient.ExchangeDeclare(
		client.notificationExchange,
		// topic is a type of exchange that allows routing messages to different queue's bases on a routing key
		"topic",
		// Durable and Non-Auto-Deleted exchanges will survive server restarts and remain
		// declared when there are no remaining bindings.
		true,
		false,
		// Non-Internal exchange's accept direct publishing
		false,
		// Nowait: We set this to false as we want to wait for a server response
		// to check whether the exchange was created succesfully
		false,
		nil,
	)
	if err != nil {
		return err
	}
	client.exchangeDeclared = true
	return nil
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
