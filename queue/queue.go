// Package queue holds the pending remote writes of an offline-first client.
// Every mutation lands here first and is written through to the durable
// local store on each change, so a restart picks up exactly where the last
// session stopped.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// ItemType tags the remote operation an item stands for.
type ItemType string

const (
	FormCreate   ItemType = "form_create"
	FormUpdate   ItemType = "form_update"
	FormDelete   ItemType = "form_delete"
	FormResponse ItemType = "form_response"
	MediaUpload  ItemType = "media_upload"
	MediaDelete  ItemType = "media_delete"
)

// DefaultMaxRetries is the retry budget assigned on enqueue.
const DefaultMaxRetries = 3

// StorageKey is the fixed key the serialized queue lives under in the
// durable local store.
const StorageKey = "formsync.mutation_queue"

// Item is one pending remote write. RetryCount never exceeds MaxRetries; an
// item that fails at the cutoff is reported as failed and skipped by
// automatic passes until manually requeued.
type Item struct {
	ID         string          `json:"id"`
	Type       ItemType        `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`
	MaxRetries int             `json:"maxRetries"`
}

// Exhausted reports whether the item has used up its retry budget.
func (it Item) Exhausted() bool {
	return it.RetryCount >= it.MaxRetries
}

// Store is the durable local key/value store the queue persists into.
type Store interface {
	Read(key string) (value string, ok bool, err error)
	Write(key, value string) error
}

// Queue is the in-memory mutation queue backed by a Store. It is read from
// the store once, on Open, and is the single source of truth afterwards.
// Producers only append; the sync engine replaces the whole queue after a
// pass.
type Queue struct {
	store Store
	items []Item
}

// Open loads the persisted queue from the store. A missing or empty key
// yields an empty queue.
func Open(store Store) (*Queue, error) {
	q := &Queue{store: store}

	raw, ok, err := store.Read(StorageKey)
	if err != nil {
		return nil, fmt.Errorf("queue.load: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.items); err != nil {
			return nil, fmt.Errorf("queue.load.parse: %w", err)
		}
	}
	return q, nil
}

// Enqueue appends a new item with a fresh id and a zero retry count, and
// persists the queue. The payload is serialized immediately so later remote
// dispatch does not depend on the caller's value staying unchanged.
func (q *Queue) Enqueue(t ItemType, payload any) (Item, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Item{}, fmt.Errorf("queue.enqueue.payload: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return Item{}, fmt.Errorf("queue.enqueue.id: %w", err)
	}

	item := Item{
		ID:         id.String(),
		Type:       t,
		Payload:    raw,
		EnqueuedAt: time.Now(),
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
	q.items = append(q.items, item)

	if err := q.persist(); err != nil {
		return Item{}, err
	}
	return item, nil
}

// All returns the queued items in enqueue order.
func (q *Queue) All() []Item {
	items := make([]Item, len(q.items))
	copy(items, q.items)
	return items
}

// Pending returns the items still eligible for an automatic sync pass.
func (q *Queue) Pending() []Item {
	pending := []Item{}
	for _, it := range q.items {
		if !it.Exhausted() {
			pending = append(pending, it)
		}
	}
	return pending
}

// FailedItems returns the items that exhausted their retry budget. They stay
// in the queue until a manual retry or Clear.
func (q *Queue) FailedItems() []Item {
	failed := []Item{}
	for _, it := range q.items {
		if it.Exhausted() {
			failed = append(failed, it)
		}
	}
	return failed
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Replace swaps the whole queue content and persists it. Only the sync
// engine calls this, after partitioning a pass into kept and dropped items.
func (q *Queue) Replace(items []Item) error {
	q.items = items
	return q.persist()
}

// Clear drops everything, including failed items.
func (q *Queue) Clear() error {
	q.items = nil
	return q.persist()
}

func (q *Queue) persist() error {
	raw, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("queue.persist.marshal: %w", err)
	}
	if err := q.store.Write(StorageKey, string(raw)); err != nil {
		return fmt.Errorf("queue.persist.write: %w", err)
	}
	return nil
}
