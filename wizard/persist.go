package wizard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/reliefworks/formsync/log"
	"github.com/reliefworks/formsync/model"
	"github.com/reliefworks/formsync/queue"
	"github.com/reliefworks/formsync/syncer"
)

// DraftKey is the durable-store key of the auto-saved wizard snapshot. It is
// separate from the mutation queue: the snapshot is local scratch state, the
// queue is pending remote work.
const DraftKey = "formsync.wizard_draft"

// Outcome of a save or publish. OK false only on a local failure (validation
// or a broken store); a remote failure is not a failure here, it degrades to
// Queued.
type Outcome struct {
	OK     bool
	Queued bool
}

// SaveDraft upserts the form remotely, or enqueues the operation when
// offline or rejected. It never propagates a remote error; callers check
// the outcome.
func (s *State) SaveDraft(ctx context.Context) Outcome {
	return s.upsert(ctx, s.Form)
}

// PublishForm validates, transitions the status, then upserts like
// SaveDraft. Publishing an already-published form is an update, not a second
// create.
func (s *State) PublishForm(ctx context.Context) Outcome {
	if !s.CanPublish() {
		return Outcome{}
	}

	form := s.Form
	if form.Status != model.StatusPublished {
		if !form.Status.CanTransition(model.StatusPublished) {
			log.Warnf("wizard.publish.transition: cannot publish from %s", form.Status)
			return Outcome{}
		}
		form.Status = model.StatusPublished
	}

	out := s.upsert(ctx, form)
	if out.OK {
		s.Form.Status = form.Status
	}
	return out
}

func (s *State) upsert(ctx context.Context, form model.Form) Outcome {
	if !s.probe.Online() {
		return s.fallbackToQueue(form)
	}

	var err error
	if s.persisted {
		_, err = s.remote.UpdateForm(ctx, form.ID, form)
	} else {
		var saved *model.Form
		saved, err = s.remote.CreateForm(ctx, form)
		if err == nil && saved != nil {
			form.Version = saved.Version
		}
	}
	if err != nil {
		log.Debugf("wizard.save.remote: %s", err)
		return s.fallbackToQueue(form)
	}

	s.persisted = true
	s.Form.Version = form.Version
	s.HasUnsavedChanges = false
	s.ClearDraft()
	return Outcome{OK: true}
}

// fallbackToQueue turns a remote failure or an offline state into a queued
// mutation. Once a create is queued, the wizard flips to persisted so a
// retry of save/publish enqueues an update behind it (FIFO keeps the create
// first) instead of a second create.
func (s *State) fallbackToQueue(form model.Form) Outcome {
	var err error
	if s.persisted {
		_, err = s.queue.Enqueue(queue.FormUpdate, syncer.FormUpdatePayload{ID: form.ID, Form: form})
	} else {
		_, err = s.queue.Enqueue(queue.FormCreate, syncer.FormPayload{Form: form})
	}
	if err != nil {
		log.Errorf("wizard.save.enqueue: %s", err)
		return Outcome{}
	}

	s.persisted = true
	s.HasUnsavedChanges = false
	s.ClearDraft()
	return Outcome{OK: true, Queued: true}
}

// draftSnapshot is the serialized auto-save shape.
type draftSnapshot struct {
	SavedAt     time.Time  `json:"savedAt"`
	CurrentStep Step       `json:"currentStep"`
	Persisted   bool       `json:"persisted"`
	Form        model.Form `json:"form"`
}

// AutoSaveDraft writes the timestamped snapshot to the durable store so a
// closed or crashed session can resume.
func (s *State) AutoSaveDraft() error {
	snap := draftSnapshot{
		SavedAt:     time.Now(),
		CurrentStep: s.CurrentStep,
		Persisted:   s.persisted,
		Form:        s.Form,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.store.Write(DraftKey, string(raw))
}

// ClearDraft drops the snapshot. Called after a successful save or publish.
func (s *State) ClearDraft() {
	if err := s.store.Write(DraftKey, ""); err != nil {
		log.Warnf("wizard.draft.clear: %s", err)
	}
}

// LoadDraft restores a wizard from the stored snapshot. The second return is
// false when no snapshot exists.
func LoadDraft(remote syncer.RemoteAPI, q *queue.Queue, store queue.Store, probe syncer.ConnectivityProbe) (*State, bool, error) {
	raw, ok, err := store.Read(DraftKey)
	if err != nil || !ok || raw == "" {
		return nil, false, err
	}

	var snap draftSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, false, err
	}

	s := &State{
		Form:              snap.Form,
		CurrentStep:       snap.CurrentStep,
		HasUnsavedChanges: true,
		remote:            remote,
		queue:             q,
		store:             store,
		probe:             probe,
		persisted:         snap.Persisted,
	}
	return s, true, nil
}
