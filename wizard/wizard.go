// Package wizard owns a form under construction: the in-progress definition,
// the step cursor, per-step validation, and the save/publish path with its
// offline fallback into the mutation queue.
package wizard

import (
	"github.com/gofrs/uuid"
	"github.com/reliefworks/formsync/model"
	"github.com/reliefworks/formsync/queue"
	"github.com/reliefworks/formsync/syncer"
)

// Step is the wizard cursor. Steps are ordered; Next is gated by the current
// step's validation.
type Step int

const (
	StepBasicInfo Step = iota
	StepSections
	StepQuestions
	StepActivityLinks
	StepSettings
	StepReview
)

var stepNames = map[Step]string{
	StepBasicInfo:     "basic_info",
	StepSections:      "sections",
	StepQuestions:     "questions",
	StepActivityLinks: "activity_links",
	StepSettings:      "settings",
	StepReview:        "review",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// State is the aggregate wizard state. It exclusively owns Form and its
// nested sections and questions; callers mutate only through the methods
// below.
type State struct {
	Form              model.Form
	CurrentStep       Step
	HasUnsavedChanges bool

	remote syncer.RemoteAPI
	queue  *queue.Queue
	store  queue.Store
	probe  syncer.ConnectivityProbe

	// persisted flips once a create reached the server or was enqueued, so a
	// second save/publish becomes an update instead of a duplicate create.
	persisted bool
}

// New starts a fresh draft. The form id is assigned up front so queued
// operations and later updates all reference the same record.
func New(remote syncer.RemoteAPI, q *queue.Queue, store queue.Store, probe syncer.ConnectivityProbe) *State {
	return &State{
		Form: model.Form{
			ID:     newID(),
			Status: model.StatusDraft,
		},
		remote: remote,
		queue:  q,
		store:  store,
		probe:  probe,
	}
}

// Edit opens an existing form for modification; saves become updates.
func Edit(form model.Form, remote syncer.RemoteAPI, q *queue.Queue, store queue.Store, probe syncer.ConnectivityProbe) *State {
	return &State{
		Form:      form,
		remote:    remote,
		queue:     q,
		store:     store,
		probe:     probe,
		persisted: true,
	}
}

func newID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// crypto/rand is out of entropy or broken; nothing sensible to do
		panic(err)
	}
	return id.String()
}

// Next advances the cursor when the current step validates. It reports
// whether the cursor moved.
func (s *State) Next() bool {
	if s.CurrentStep >= StepReview || !s.ValidateCurrentStep() {
		return false
	}
	s.CurrentStep++
	return true
}

func (s *State) Prev() bool {
	if s.CurrentStep <= StepBasicInfo {
		return false
	}
	s.CurrentStep--
	return true
}

// AddSection appends an empty section at the end of the form.
func (s *State) AddSection(title string) *model.Section {
	sec := model.Section{
		ID:        newID(),
		Title:     title,
		Order:     len(s.Form.Sections) + 1,
		Questions: []model.Question{},
	}
	s.Form.Sections = append(s.Form.Sections, sec)
	s.HasUnsavedChanges = true
	return &s.Form.Sections[len(s.Form.Sections)-1]
}

// UpdateSection applies the mutation to the section with the given id; a
// miss is a no-op.
func (s *State) UpdateSection(sectionID string, mutate func(*model.Section)) {
	if sec := s.section(sectionID); sec != nil {
		mutate(sec)
		s.HasUnsavedChanges = true
	}
}

func (s *State) RemoveSection(sectionID string) {
	kept := s.Form.Sections[:0]
	for _, sec := range s.Form.Sections {
		if sec.ID != sectionID {
			kept = append(kept, sec)
		}
	}
	if len(kept) == len(s.Form.Sections) {
		return
	}
	s.Form.Sections = kept
	s.renumberSections()
	s.HasUnsavedChanges = true
}

// ReorderSections moves the section at index from to index to and renumbers
// every section so Order always equals array position + 1.
func (s *State) ReorderSections(from, to int) {
	n := len(s.Form.Sections)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return
	}
	moved := s.Form.Sections[from]
	rest := append([]model.Section{}, s.Form.Sections[:from]...)
	rest = append(rest, s.Form.Sections[from+1:]...)

	sections := append([]model.Section{}, rest[:to]...)
	sections = append(sections, moved)
	sections = append(sections, rest[to:]...)

	s.Form.Sections = sections
	s.renumberSections()
	s.HasUnsavedChanges = true
}

func (s *State) renumberSections() {
	for i := range s.Form.Sections {
		s.Form.Sections[i].Order = i + 1
	}
}

func (s *State) section(id string) *model.Section {
	for i := range s.Form.Sections {
		if s.Form.Sections[i].ID == id {
			return &s.Form.Sections[i]
		}
	}
	return nil
}

// AddQuestion appends a question of the given type, filled with the type's
// editing defaults. An unknown section id is a silent no-op.
func (s *State) AddQuestion(sectionID string, t model.QuestionType) *model.Question {
	sec := s.section(sectionID)
	if sec == nil {
		return nil
	}

	q := defaultQuestion(t)
	q.Order = len(sec.Questions) + 1
	sec.Questions = append(sec.Questions, q)
	s.HasUnsavedChanges = true
	return &sec.Questions[len(sec.Questions)-1]
}

func (s *State) UpdateQuestion(sectionID, questionID string, mutate func(*model.Question)) {
	sec := s.section(sectionID)
	if sec == nil {
		return
	}
	for i := range sec.Questions {
		if sec.Questions[i].ID == questionID {
			mutate(&sec.Questions[i])
			s.HasUnsavedChanges = true
			return
		}
	}
}

func (s *State) RemoveQuestion(sectionID, questionID string) {
	sec := s.section(sectionID)
	if sec == nil {
		return
	}
	kept := sec.Questions[:0]
	for _, q := range sec.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(sec.Questions) {
		return
	}
	sec.Questions = kept
	for i := range sec.Questions {
		sec.Questions[i].Order = i + 1
	}
	s.HasUnsavedChanges = true
}

// DuplicateQuestion copies a question under a fresh id with " (Copy)"
// appended to the title, ordered last in its section. Questions nested under
// the copy's options keep their original ids, so option-conditional children
// are shared with the source question.
// TODO decide whether nested conditional ids should be regenerated; sharing
// them means edits through one parent show up under the other.
func (s *State) DuplicateQuestion(sectionID, questionID string) *model.Question {
	sec := s.section(sectionID)
	if sec == nil {
		return nil
	}
	for _, q := range sec.Questions {
		if q.ID != questionID {
			continue
		}
		dup := q
		dup.ID = newID()
		dup.Title = q.Title + " (Copy)"
		dup.Order = len(sec.Questions) + 1
		sec.Questions = append(sec.Questions, dup)
		s.HasUnsavedChanges = true
		return &sec.Questions[len(sec.Questions)-1]
	}
	return nil
}

// LinkQuestionToActivity sets the legacy singular link. New code should use
// LinkQuestionToActivities; this stays for callers still writing the old
// shape.
func (s *State) LinkQuestionToActivity(sectionID, questionID string, link model.ActivityLink) {
	s.UpdateQuestion(sectionID, questionID, func(q *model.Question) {
		q.LinkedActivity = &link
		q.LinkedActivities = nil
	})
}

func (s *State) LinkQuestionToActivities(sectionID, questionID string, links []model.ActivityLink) {
	s.UpdateQuestion(sectionID, questionID, func(q *model.Question) {
		q.SetActivityLinks(links)
	})
}
