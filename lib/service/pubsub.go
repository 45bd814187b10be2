package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/makbank/bankhub.go/db/models"
)

// Pubsub fans committed ledger entries out to in-process subscribers, keyed by entry type.
type Pubsub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan models.TransactionEntry
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[string]map[string]chan models.TransactionEntry)
	return ps
}

func (ps *Pubsub) Subscribe(topic string, ch chan models.TransactionEntry) (subId string, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan models.TransactionEntry)
	}
	subId = uuid.NewString()
	ps.subs[topic][subId] = ch
	return subId, nil
}

func (ps *Pubsub) Unsubscribe(id string, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][id] == nil {
		return
	}
	close(ps.subs[topic][id])
	delete(ps.subs[topic], id)
}

// Publish never blocks. It returns how many subscribers missed msg because their buffer was full.
func (ps *Pubsub) Publish(topic string, msg models.TransactionEntry) (dropped int) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subs[topic] {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	return dropped
}

// SubscribeAll subscribes ch to every entry type and returns a function undoing it.
func (ps *Pubsub) SubscribeAll(ch chan models.TransactionEntry) (unsubscribe func(), err error) {
	ids := map[string]string{}
	for _, topic := range entryTopics {
		id, err := ps.Subscribe(topic, ch)
		if err != nil {
			return nil, err
		}
		ids[topic] = id
	}
	return func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		// the channel is shared between topics, close it only once
		for topic, id := range ids {
			delete(ps.subs[topic], id)
		}
		close(ch)
	}, nil
}

func (svc *BankService) publishEntries(entries ...models.TransactionEntry) {
	if svc.EntryPubSub == nil {
		return
	}
	for _, entry := range entries {
		if dropped := svc.EntryPubSub.Publish(entry.Type, entry); dropped > 0 {
			svc.Logger.Warnf("Ledger entry %d not delivered to %d slow subscribers", entry.ID, dropped)
		}
	}
}
