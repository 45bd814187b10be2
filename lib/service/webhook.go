package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/makbank/bankhub.go/common"
	"github.com/makbank/bankhub.go/db/models"
)

var entryTopics = []string{
	common.EntryTypeDeposit,
	common.EntryTypeWithdrawal,
	common.EntryTypeTransfer,
}

const entrySubscriberBuffer = 100

func (svc *BankService) StartWebhookSubscription(ctx context.Context, url string) {
	svc.Logger.Infof("Starting webhook subscription with webhook url %s", url)
	entries := make(chan models.TransactionEntry, entrySubscriberBuffer)
	unsubscribe, err := svc.EntryPubSub.SubscribeAll(entries)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer unsubscribe()

	client := &http.Client{Timeout: 10 * time.Second}
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-entries:
			svc.postToWebhook(ctx, client, url, entry)
		}
	}
}

func (svc *BankService) postToWebhook(ctx context.Context, client *http.Client, url string, entry models.TransactionEntry) {
	payload := new(bytes.Buffer)
	err := json.NewEncoder(payload).Encode(entry)
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
}
