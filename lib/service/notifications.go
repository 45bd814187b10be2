package service

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/makbank/bankhub.go/db/models"
	"github.com/ziflex/lecho/v3"
)

const notificationTimeout = 10 * time.Second

// Notifier delivers account holder notifications. Delivery is best effort.
type Notifier interface {
	SendWelcome(ctx context.Context, account models.Account) error
}

// LogNotifier only writes notifications to the log. It is used when no broker is configured.
type LogNotifier struct {
	Logger *lecho.Logger
}

func (n *LogNotifier) SendWelcome(ctx context.Context, account models.Account) error {
	n.Logger.Infof("Welcome %s, your account %s has been created with a balance of %d", account.Name, account.AccountNumber, account.Balance)
	return nil
}

// SendWelcomeNotification sends the welcome message in the background.
// The returned channel yields the delivery result once and is then closed.
// Failures are logged and reported, they never affect the registration.
func (svc *BankService) SendWelcomeNotification(account models.Account) <-chan error {
	result := make(chan error, 1)
	if svc.Notifier == nil {
		close(result)
		return result
	}
	go func() {
		defer close(result)
		ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()
		err := svc.Notifier.SendWelcome(ctx, account)
		if err != nil {
			err = fmt.Errorf("welcome notification for account %d: %w", account.ID, err)
			svc.Logger.Error(err)
			sentry.CaptureException(err)
		}
		result <- err
	}()
	return result
}
