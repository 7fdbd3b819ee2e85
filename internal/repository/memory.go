package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hooksink/hooksink/internal/models"
)

// InMemoryRepository keeps messages in process memory. Intended for tests and
// local development; the mutex gives Stats and List a consistent snapshot.
type InMemoryRepository struct {
	mu       sync.RWMutex
	byID     map[string]*models.Message
	messages []*models.Message
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID: make(map[string]*models.Message),
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, msg *models.Message) (InsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[msg.MessageID]; exists {
		return OutcomeDuplicate, nil
	}

	stored := *msg
	r.byID[stored.MessageID] = &stored
	r.messages = append(r.messages, &stored)
	return OutcomeCreated, nil
}

func (r *InMemoryRepository) List(ctx context.Context, f Filter, p Page) ([]models.Message, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.Message
	for _, m := range r.messages {
		if matches(m, f) {
			matched = append(matched, m)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].TS.Equal(matched[j].TS) {
			return matched[i].TS.Before(matched[j].TS)
		}
		return matched[i].MessageID < matched[j].MessageID
	})

	total := int64(len(matched))

	start := p.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + p.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]models.Message, 0, end-start)
	for _, m := range matched[start:end] {
		page = append(page, *m)
	}
	return page, total, nil
}

func (r *InMemoryRepository) Stats(ctx context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{
		TotalMessages:     int64(len(r.messages)),
		MessagesPerSender: []SenderCount{},
	}

	counts := make(map[string]int64)
	for _, m := range r.messages {
		counts[m.From]++
		ts := m.TS
		if stats.FirstMessageTS == nil || ts.Before(*stats.FirstMessageTS) {
			first := ts
			stats.FirstMessageTS = &first
		}
		if stats.LastMessageTS == nil || ts.After(*stats.LastMessageTS) {
			last := ts
			stats.LastMessageTS = &last
		}
	}
	stats.SendersCount = int64(len(counts))

	senders := make([]SenderCount, 0, len(counts))
	for from, n := range counts {
		senders = append(senders, SenderCount{From: from, Count: n})
	}
	sort.Slice(senders, func(i, j int) bool {
		if senders[i].Count != senders[j].Count {
			return senders[i].Count > senders[j].Count
		}
		return senders[i].From < senders[j].From
	})
	if len(senders) > topSendersLimit {
		senders = senders[:topSendersLimit]
	}
	stats.MessagesPerSender = senders

	return stats, nil
}

func (r *InMemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *InMemoryRepository) Close() {}

func matches(m *models.Message, f Filter) bool {
	if f.From != "" && m.From != f.From {
		return false
	}
	if f.Since != nil && m.TS.Before(*f.Since) {
		return false
	}
	if f.Q != "" && !strings.Contains(strings.ToLower(m.Text), strings.ToLower(f.Q)) {
		return false
	}
	return true
}
