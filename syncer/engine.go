// Package syncer drains the mutation queue against the remote API whenever
// connectivity allows. One pass walks the queue in enqueue order, applies
// each item, and keeps failures around with a bumped retry count. Delivery
// is at-least-once: a pass interrupted mid-way leaves earlier items already
// applied remotely.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/reliefworks/formsync/log"
	"github.com/reliefworks/formsync/model"
	"github.com/reliefworks/formsync/queue"
)

// RemoteAPI is the server boundary the engine writes through. Every
// rejection is treated as retryable.
type RemoteAPI interface {
	CreateForm(ctx context.Context, form model.Form) (*model.Form, error)
	UpdateForm(ctx context.Context, id string, form model.Form) (*model.Form, error)
	DeleteForm(ctx context.Context, id string) error
	SubmitResponse(ctx context.Context, resp model.FormResponse) (*model.FormResponse, error)
	UpdateResponse(ctx context.Context, id string, resp model.FormResponse) (*model.FormResponse, error)
}

// MediaAPI handles media_upload/media_delete items. It is optional: a
// RemoteAPI that does not implement it fails those items, which then land in
// the failed set once their retries run out.
type MediaAPI interface {
	UploadMedia(ctx context.Context, payload MediaPayload) error
	DeleteMedia(ctx context.Context, mediaID string) error
}

// ConnectivityProbe abstracts the online/offline signal so tests can drive
// transitions deterministically. Subscribe registers a callback invoked on
// every transition; the engine subscribes exactly once, at construction.
type ConnectivityProbe interface {
	Online() bool
	Subscribe(func(online bool))
}

// Queue item payloads. These are the shapes producers marshal on enqueue and
// the engine unmarshals on dispatch.
type FormPayload struct {
	Form model.Form `json:"form"`
}

type FormUpdatePayload struct {
	ID   string     `json:"id"`
	Form model.Form `json:"form"`
}

type FormDeletePayload struct {
	ID string `json:"id"`
}

type ResponsePayload struct {
	Response model.FormResponse `json:"response"`
	// Update distinguishes an edit of an already-submitted response from a
	// first submission.
	Update bool `json:"update,omitempty"`
}

type MediaPayload struct {
	MediaID  string `json:"mediaId"`
	FormID   string `json:"formId"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data,omitempty"`
}

type Status int

const (
	StatusIdle Status = iota
	StatusSyncing
	StatusIdleWithFailures
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSyncing:
		return "syncing"
	case StatusIdleWithFailures:
		return "idle-with-failures"
	}
	return "unknown"
}

// Result partitions one pass. Failed contains the items kept in the queue,
// already carrying their incremented retry count.
type Result struct {
	Succeeded []queue.Item
	Failed    []queue.Item
}

// Event is the user-visible outcome of a pass, delivered to the Notifier.
type Event string

const (
	EventOffline Event = "offline"
	EventSynced  Event = "synced"
	EventPartial Event = "partial"
)

type Notifier func(event Event, result Result)

// Engine ties the queue, the remote API and the connectivity probe together.
// Passes are serialized: a pass requested while one is in flight is skipped.
type Engine struct {
	queue  *queue.Queue
	api    RemoteAPI
	probe  ConnectivityProbe
	notify Notifier

	mu       sync.Mutex
	syncing  bool
	failures bool
}

// New builds the engine and subscribes it to connectivity transitions: the
// queue is drained automatically once on every offline→online flip.
func New(q *queue.Queue, api RemoteAPI, probe ConnectivityProbe, notify Notifier) *Engine {
	e := &Engine{queue: q, api: api, probe: probe, notify: notify}
	probe.Subscribe(func(online bool) {
		if online {
			e.ProcessQueue(context.Background())
		}
	})
	return e
}

// Status reports idle, syncing, or idle-with-failures.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.syncing {
		return StatusSyncing
	}
	if e.failures {
		return StatusIdleWithFailures
	}
	return StatusIdle
}

var errAlreadySyncing = errors.New("sync already in flight")

// ProcessQueue runs one pass: items are dispatched in enqueue order, dropped
// on success, kept with retryCount+1 on failure. Items that already
// exhausted their budget are carried over untouched. Offline, the pass
// returns immediately with the queue unchanged.
func (e *Engine) ProcessQueue(ctx context.Context) (Result, error) {
	if !e.probe.Online() {
		e.emit(EventOffline, Result{})
		return Result{}, nil
	}

	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return Result{}, errAlreadySyncing
	}
	e.syncing = true
	e.mu.Unlock()

	result, err := e.drain(ctx)

	e.mu.Lock()
	e.syncing = false
	e.failures = len(e.queue.FailedItems()) > 0
	e.mu.Unlock()

	if len(result.Failed) == 0 {
		e.emit(EventSynced, result)
	} else {
		e.emit(EventPartial, result)
	}
	return result, err
}

func (e *Engine) drain(ctx context.Context) (Result, error) {
	result := Result{}
	kept := []queue.Item{}

	for _, item := range e.queue.All() {
		if item.Exhausted() {
			kept = append(kept, item)
			continue
		}

		if err := e.dispatch(ctx, item); err != nil {
			log.Debugf("sync.item.failed: %s %s: %s", item.Type, item.ID, err)
			item.RetryCount++
			result.Failed = append(result.Failed, item)
			kept = append(kept, item)
			continue
		}
		result.Succeeded = append(result.Succeeded, item)
	}

	if err := e.queue.Replace(kept); err != nil {
		return result, fmt.Errorf("sync.queue.replace: %w", err)
	}
	return result, nil
}

// RetryFailedItems resets the retry count of exhausted items only, then runs
// a fresh pass so they get attempted again.
func (e *Engine) RetryFailedItems(ctx context.Context) (Result, error) {
	items := e.queue.All()
	for i, item := range items {
		if item.Exhausted() {
			items[i].RetryCount = 0
		}
	}
	if err := e.queue.Replace(items); err != nil {
		return Result{}, fmt.Errorf("sync.retry.replace: %w", err)
	}
	return e.ProcessQueue(ctx)
}

func (e *Engine) dispatch(ctx context.Context, item queue.Item) error {
	switch item.Type {
	case queue.FormCreate:
		var p FormPayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return err
		}
		_, err := e.api.CreateForm(ctx, p.Form)
		return err

	case queue.FormUpdate:
		var p FormUpdatePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return err
		}
		_, err := e.api.UpdateForm(ctx, p.ID, p.Form)
		return err

	case queue.FormDelete:
		var p FormDeletePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return err
		}
		return e.api.DeleteForm(ctx, p.ID)

	case queue.FormResponse:
		var p ResponsePayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return err
		}
		if p.Update {
			_, err := e.api.UpdateResponse(ctx, p.Response.ID, p.Response)
			return err
		}
		_, err := e.api.SubmitResponse(ctx, p.Response)
		return err

	case queue.MediaUpload:
		media, ok := e.api.(MediaAPI)
		if !ok {
			return errors.New("remote api does not handle media")
		}
		var p MediaPayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return err
		}
		return media.UploadMedia(ctx, p)

	case queue.MediaDelete:
		media, ok := e.api.(MediaAPI)
		if !ok {
			return errors.New("remote api does not handle media")
		}
		var p MediaPayload
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return err
		}
		return media.DeleteMedia(ctx, p.MediaID)
	}

	return fmt.Errorf("unknown queue item type %q", item.Type)
}

func (e *Engine) emit(event Event, result Result) {
	if e.notify == nil {
		return
	}
	e.notify(event, result)
}
