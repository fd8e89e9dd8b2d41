package syncer

import (
	"context"
	"fmt"
	"testing"

	"github.com/reliefworks/formsync/model"
	"github.com/reliefworks/formsync/queue"
)

type memStore struct {
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (s *memStore) Read(key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Write(key, value string) error {
	s.data[key] = value
	return nil
}

// fakeAPI fails any operation whose form/response id is listed in failIDs
// and records every call.
type fakeAPI struct {
	failIDs map[string]bool
	calls   []string
}

func (f *fakeAPI) attempt(op, id string) error {
	f.calls = append(f.calls, op+":"+id)
	if f.failIDs[id] {
		return fmt.Errorf("remote rejected %s", id)
	}
	return nil
}

func (f *fakeAPI) CreateForm(_ context.Context, form model.Form) (*model.Form, error) {
	return &form, f.attempt("create", form.ID)
}
func (f *fakeAPI) UpdateForm(_ context.Context, id string, form model.Form) (*model.Form, error) {
	return &form, f.attempt("update", id)
}
func (f *fakeAPI) DeleteForm(_ context.Context, id string) error {
	return f.attempt("delete", id)
}
func (f *fakeAPI) SubmitResponse(_ context.Context, resp model.FormResponse) (*model.FormResponse, error) {
	return &resp, f.attempt("submit", resp.ID)
}
func (f *fakeAPI) UpdateResponse(_ context.Context, id string, resp model.FormResponse) (*model.FormResponse, error) {
	return &resp, f.attempt("update_response", id)
}

func newTestEngine(t *testing.T, api RemoteAPI, online bool) (*Engine, *queue.Queue, *SwitchProbe) {
	t.Helper()
	q, err := queue.Open(newMemStore())
	if err != nil {
		t.Fatal(err)
	}
	probe := NewSwitchProbe(online)
	return New(q, api, probe, nil), q, probe
}

func enqueueCreate(t *testing.T, q *queue.Queue, formID string) queue.Item {
	t.Helper()
	item, err := q.Enqueue(queue.FormCreate, FormPayload{Form: model.Form{ID: formID}})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestProcessQueuePartialFailure(t *testing.T) {
	api := &fakeAPI{failIDs: map[string]bool{"f2": true}}
	engine, q, _ := newTestEngine(t, api, true)

	enqueueCreate(t, q, "f1")
	second := enqueueCreate(t, q, "f2")
	enqueueCreate(t, q, "f3")

	result, err := engine.ProcessQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Succeeded) != 2 {
		t.Errorf("succeeded: got %d, want 2", len(result.Succeeded))
	}
	if len(result.Failed) != 1 || result.Failed[0].ID != second.ID {
		t.Fatalf("failed: want exactly item 2")
	}

	remaining := q.All()
	if len(remaining) != 1 {
		t.Fatalf("queue after pass: got %d items, want 1", len(remaining))
	}
	if remaining[0].ID != second.ID || remaining[0].RetryCount != 1 {
		t.Errorf("kept item should be #2 with retryCount 1, got %+v", remaining[0])
	}
}

func TestProcessQueueOfflineIsNoop(t *testing.T) {
	api := &fakeAPI{}
	engine, q, _ := newTestEngine(t, api, false)

	enqueueCreate(t, q, "f1")

	result, err := engine.ProcessQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Succeeded)+len(result.Failed) != 0 {
		t.Errorf("offline pass must not touch anything")
	}
	if len(api.calls) != 0 {
		t.Errorf("offline pass must not reach the remote, got %v", api.calls)
	}
	if q.Len() != 1 {
		t.Errorf("queue must stay unchanged")
	}
}

func TestOnlineTransitionDrainsQueue(t *testing.T) {
	api := &fakeAPI{}
	engine, q, probe := newTestEngine(t, api, false)

	enqueueCreate(t, q, "f1")
	enqueueCreate(t, q, "f2")

	probe.Set(true)

	if q.Len() != 0 {
		t.Errorf("offline→online should drain the queue, %d left", q.Len())
	}
	if len(api.calls) != 2 {
		t.Errorf("expected 2 remote calls, got %v", api.calls)
	}
	if engine.Status() != StatusIdle {
		t.Errorf("status after clean drain: got %s", engine.Status())
	}
}

func TestRetryCutoffAndManualRetry(t *testing.T) {
	api := &fakeAPI{failIDs: map[string]bool{"f1": true}}
	engine, q, _ := newTestEngine(t, api, true)

	item := enqueueCreate(t, q, "f1")

	for i := 0; i < queue.DefaultMaxRetries; i++ {
		if _, err := engine.ProcessQueue(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	failed := q.FailedItems()
	if len(failed) != 1 || failed[0].ID != item.ID {
		t.Fatalf("failedItems: want exactly the exhausted item, got %d", len(failed))
	}
	if engine.Status() != StatusIdleWithFailures {
		t.Errorf("status: got %s, want idle-with-failures", engine.Status())
	}

	// a further automatic pass must not attempt the exhausted item
	attempts := len(api.calls)
	if _, err := engine.ProcessQueue(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(api.calls) != attempts {
		t.Errorf("exhausted item was retried automatically")
	}
	if q.Len() != 1 {
		t.Errorf("exhausted item must be retained for manual retry")
	}

	// manual retry resets the budget; with the remote fixed, the item drains
	api.failIDs = nil
	result, err := engine.RetryFailedItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Succeeded) != 1 {
		t.Errorf("retried item should succeed, got %+v", result)
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty after successful retry")
	}
	if engine.Status() != StatusIdle {
		t.Errorf("status after recovery: got %s", engine.Status())
	}
}

func TestRetryFailedItemsResetsOnlyExhausted(t *testing.T) {
	api := &fakeAPI{failIDs: map[string]bool{"f1": true, "f2": true}}
	engine, q, _ := newTestEngine(t, api, true)

	exhausted := enqueueCreate(t, q, "f1")
	fresh := enqueueCreate(t, q, "f2")

	items := q.All()
	for i := range items {
		switch items[i].ID {
		case exhausted.ID:
			items[i].RetryCount = items[i].MaxRetries
		case fresh.ID:
			items[i].RetryCount = 1
		}
	}
	if err := q.Replace(items); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.RetryFailedItems(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, it := range q.All() {
		switch it.ID {
		case exhausted.ID:
			// reset to 0, then failed once in the pass that follows
			if it.RetryCount != 1 {
				t.Errorf("exhausted item: retryCount = %d, want 1", it.RetryCount)
			}
		case fresh.ID:
			if it.RetryCount != 2 {
				t.Errorf("fresh item kept its own count: got %d, want 2", it.RetryCount)
			}
		}
	}
}

func TestDispatchResponseItems(t *testing.T) {
	api := &fakeAPI{}
	engine, q, _ := newTestEngine(t, api, true)

	resp := model.FormResponse{ID: "r1", FormID: "f1"}
	if _, err := q.Enqueue(queue.FormResponse, ResponsePayload{Response: resp}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(queue.FormResponse, ResponsePayload{Response: resp, Update: true}); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ProcessQueue(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"submit:r1", "update_response:r1"}
	if len(api.calls) != len(want) {
		t.Fatalf("calls: got %v, want %v", api.calls, want)
	}
	for i := range want {
		if api.calls[i] != want[i] {
			t.Fatalf("calls: got %v, want %v", api.calls, want)
		}
	}
}

func TestMediaWithoutMediaAPIFails(t *testing.T) {
	api := &fakeAPI{}
	engine, q, _ := newTestEngine(t, api, true)

	if _, err := q.Enqueue(queue.MediaUpload, MediaPayload{MediaID: "m1"}); err != nil {
		t.Fatal(err)
	}

	result, err := engine.ProcessQueue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Failed) != 1 {
		t.Errorf("media item should fail when the api cannot handle media")
	}
}

func TestNotifierEvents(t *testing.T) {
	var events []Event
	api := &fakeAPI{failIDs: map[string]bool{"f2": true}}
	q, err := queue.Open(newMemStore())
	if err != nil {
		t.Fatal(err)
	}
	probe := NewSwitchProbe(false)
	engine := New(q, api, probe, func(e Event, _ Result) {
		events = append(events, e)
	})

	enqueueCreate(t, q, "f1")
	enqueueCreate(t, q, "f2")

	engine.ProcessQueue(context.Background())
	probe.Set(true)

	want := []Event{EventOffline, EventPartial}
	if len(events) != len(want) {
		t.Fatalf("events: got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events: got %v, want %v", events, want)
		}
	}
}

func TestProbeNotifiesOnlyOnTransition(t *testing.T) {
	probe := NewSwitchProbe(true)
	var flips int
	probe.Subscribe(func(bool) { flips++ })

	probe.Set(true) // no transition
	probe.Set(false)
	probe.Set(false) // no transition
	probe.Set(true)

	if flips != 2 {
		t.Errorf("got %d notifications, want 2", flips)
	}
}
