package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/reliefworks/formsync/model"
	"github.com/reliefworks/formsync/queue"
	"github.com/reliefworks/formsync/syncer"
)

type countingRemote struct {
	creates, updates int
	fail             bool
}

func (r *countingRemote) CreateForm(_ context.Context, form model.Form) (*model.Form, error) {
	if r.fail {
		return nil, errors.New("remote down")
	}
	r.creates++
	form.Version = 1
	return &form, nil
}
func (r *countingRemote) UpdateForm(_ context.Context, _ string, form model.Form) (*model.Form, error) {
	if r.fail {
		return nil, errors.New("remote down")
	}
	r.updates++
	return &form, nil
}
func (r *countingRemote) DeleteForm(context.Context, string) error { return nil }
func (r *countingRemote) SubmitResponse(_ context.Context, resp model.FormResponse) (*model.FormResponse, error) {
	return &resp, nil
}
func (r *countingRemote) UpdateResponse(_ context.Context, _ string, resp model.FormResponse) (*model.FormResponse, error) {
	return &resp, nil
}

func publishableWizard(t *testing.T, remote syncer.RemoteAPI, online bool) (*State, *queue.Queue, *memStore) {
	t.Helper()
	s, q, store := newTestWizard(t, remote, online)
	s.Form.Title = "Baseline survey"
	s.Form.ProjectID = "p1"
	sec := s.AddSection("Basics")
	s.AddQuestion(sec.ID, model.TypeText)
	return s, q, store
}

func TestPublishTwiceCreatesOnce(t *testing.T) {
	remote := &countingRemote{}
	s, _, _ := publishableWizard(t, remote, true)

	first := s.PublishForm(context.Background())
	if !first.OK || first.Queued {
		t.Fatalf("first publish: %+v", first)
	}
	second := s.PublishForm(context.Background())
	if !second.OK || second.Queued {
		t.Fatalf("second publish: %+v", second)
	}

	if remote.creates != 1 {
		t.Errorf("creates = %d, want exactly 1", remote.creates)
	}
	if remote.updates != 1 {
		t.Errorf("updates = %d, want 1", remote.updates)
	}
	if s.Form.Status != model.StatusPublished {
		t.Errorf("status: got %s", s.Form.Status)
	}
}

func TestPublishBlockedByValidation(t *testing.T) {
	remote := &countingRemote{}
	s, _, _ := newTestWizard(t, remote, true)

	out := s.PublishForm(context.Background())
	if out.OK {
		t.Fatalf("publishing an empty form must fail validation")
	}
	if remote.creates != 0 {
		t.Errorf("nothing should reach the remote")
	}
}

func TestSaveDraftOfflineQueues(t *testing.T) {
	remote := &countingRemote{}
	s, q, _ := publishableWizard(t, remote, false)

	out := s.SaveDraft(context.Background())
	if !out.OK || !out.Queued {
		t.Fatalf("offline save should queue: %+v", out)
	}
	if remote.creates != 0 {
		t.Errorf("offline save must not call the remote")
	}

	items := q.All()
	if len(items) != 1 || items[0].Type != queue.FormCreate {
		t.Fatalf("queue: got %d items", len(items))
	}

	// a second save becomes an update behind the queued create
	out = s.SaveDraft(context.Background())
	if !out.OK || !out.Queued {
		t.Fatalf("second offline save: %+v", out)
	}
	items = q.All()
	if len(items) != 2 || items[1].Type != queue.FormUpdate {
		t.Fatalf("second save should enqueue form_update, got %v", items[1].Type)
	}
}

func TestSaveDraftRemoteErrorFallsBackToQueue(t *testing.T) {
	remote := &countingRemote{fail: true}
	s, q, _ := publishableWizard(t, remote, true)

	out := s.SaveDraft(context.Background())
	if !out.OK || !out.Queued {
		t.Fatalf("rejected save should degrade to queued: %+v", out)
	}
	if q.Len() != 1 {
		t.Errorf("queue: got %d items, want 1", q.Len())
	}
	if s.HasUnsavedChanges {
		t.Errorf("queued work counts as saved")
	}
}

func TestQueuedSaveDrainsThroughSyncEngine(t *testing.T) {
	remote := &countingRemote{}
	probe := syncer.NewSwitchProbe(false)
	store := newMemStore()
	q, err := queue.Open(store)
	if err != nil {
		t.Fatal(err)
	}

	s := New(remote, q, store, probe)
	s.Form.Title = "Baseline survey"
	s.Form.ProjectID = "p1"
	sec := s.AddSection("Basics")
	s.AddQuestion(sec.ID, model.TypeText)

	if out := s.SaveDraft(context.Background()); !out.Queued {
		t.Fatalf("offline save should queue: %+v", out)
	}

	syncer.New(q, remote, probe, nil)
	probe.Set(true)

	if remote.creates != 1 {
		t.Errorf("queued create should reach the remote on reconnect, got %d", remote.creates)
	}
	if q.Len() != 0 {
		t.Errorf("queue should drain")
	}
}

func TestDraftSnapshotRoundTrip(t *testing.T) {
	remote := &countingRemote{}
	s, q, store := publishableWizard(t, remote, true)
	s.CurrentStep = StepQuestions

	if err := s.AutoSaveDraft(); err != nil {
		t.Fatal(err)
	}

	restored, ok, err := LoadDraft(remote, q, store, syncer.NewSwitchProbe(true))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("snapshot should exist")
	}
	if restored.Form.ID != s.Form.ID || restored.Form.Title != s.Form.Title {
		t.Errorf("restored form differs")
	}
	if restored.CurrentStep != StepQuestions {
		t.Errorf("cursor: got %s", restored.CurrentStep)
	}
	if !restored.HasUnsavedChanges {
		t.Errorf("a restored draft is unsaved by definition")
	}
}

func TestSaveClearsDraftSnapshot(t *testing.T) {
	remote := &countingRemote{}
	s, q, store := publishableWizard(t, remote, true)

	if err := s.AutoSaveDraft(); err != nil {
		t.Fatal(err)
	}
	if out := s.SaveDraft(context.Background()); !out.OK {
		t.Fatalf("save: %+v", out)
	}

	_, ok, err := LoadDraft(remote, q, store, syncer.NewSwitchProbe(true))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Errorf("successful save must clear the snapshot")
	}
}
