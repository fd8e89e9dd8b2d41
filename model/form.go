package model

import (
	"fmt"
	"time"
)

type FormStatus string

const (
	StatusDraft     FormStatus = "DRAFT"
	StatusPublished FormStatus = "PUBLISHED"
	StatusClosed    FormStatus = "CLOSED"
	StatusArchived  FormStatus = "ARCHIVED"
)

// CanTransition reports whether a form may move between the two statuses.
// The only exposed path is DRAFT→PUBLISHED→{CLOSED, ARCHIVED}; nothing goes
// back to DRAFT.
func (s FormStatus) CanTransition(to FormStatus) bool {
	switch s {
	case StatusDraft:
		return to == StatusPublished
	case StatusPublished:
		return to == StatusClosed || to == StatusArchived
	case StatusClosed:
		return to == StatusArchived
	case StatusArchived:
		return false
	}
	return false
}

// Section is an ordered top-level group of questions. A section-level
// Conditional hides the whole section the same way a question-level one
// hides a single question.
type Section struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Order       int          `json:"order"`
	Questions   []Question   `json:"questions"`
	Conditional *Conditional `json:"conditional,omitempty"`
}

type FormSettings struct {
	AllowMultipleResponses bool     `json:"allowMultipleResponses,omitempty"`
	RequireLogin           bool     `json:"requireLogin,omitempty"`
	ShowProgressBar        bool     `json:"showProgressBar,omitempty"`
	ConfirmationMessage    string   `json:"confirmationMessage,omitempty"`
	NotificationEmails     []string `json:"notificationEmails,omitempty"`
}

// Form is the persisted form definition. It exclusively owns its sections
// and their questions; the nested structure below is the wire format and
// round-trips verbatim.
type Form struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	ProjectID     string       `json:"projectId"`
	Status        FormStatus   `json:"status"`
	Version       int          `json:"version"`
	Sections      []Section    `json:"sections"`
	Settings      FormSettings `json:"settings"`
	ResponseCount int          `json:"responseCount"`
	Tags          []string     `json:"tags,omitempty"`
	Category      string       `json:"category,omitempty"`
}

// AllQuestions flattens every question in the form, including the ones
// nested under choice options, in section/question/option order. This is the
// flat list the visibility resolver works over.
func (f *Form) AllQuestions() []Question {
	var all []Question
	for _, sec := range f.Sections {
		for _, q := range sec.Questions {
			all = append(all, flattenQuestion(q)...)
		}
	}
	return all
}

func flattenQuestion(q Question) []Question {
	all := []Question{q}
	for _, opt := range q.Options {
		for _, child := range opt.ConditionalQuestions {
			all = append(all, flattenQuestion(child)...)
		}
	}
	return all
}

// CheckConditionalOwnership verifies the single-owner invariant: no question
// id may be nested under two different options. Construction sites call this
// explicitly; the visibility resolver itself does not reject violations.
func (f *Form) CheckConditionalOwnership() error {
	owners := map[string]string{}
	for _, sec := range f.Sections {
		for _, q := range sec.Questions {
			if err := checkOwnership(q, owners); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkOwnership(q Question, owners map[string]string) error {
	for _, opt := range q.Options {
		for _, child := range opt.ConditionalQuestions {
			if prev, seen := owners[child.ID]; seen {
				return fmt.Errorf("question %q nested under options %q and %q", child.ID, prev, opt.ID)
			}
			owners[child.ID] = opt.ID
			if err := checkOwnership(child, owners); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormResponse is one respondent's answer set. FormVersion is captured at
// submission time and never changes afterwards; IsComplete, once set, stays
// set even through later updates.
type FormResponse struct {
	ID          string         `json:"id"`
	FormID      string         `json:"formId"`
	FormVersion int            `json:"formVersion"`
	Data        map[string]any `json:"data"`
	IsComplete  bool           `json:"isComplete"`
	StartedAt   time.Time      `json:"startedAt"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
}
