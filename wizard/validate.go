package wizard

// Severity of a review check. Only error-severity checks block publishing;
// warnings are surfaced in the review step and nothing else.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Check struct {
	Key      string   `json:"key"`
	Severity Severity `json:"severity"`
	OK       bool     `json:"ok"`
	Message  string   `json:"message"`
}

// ValidateCurrentStep is the per-step gate for Next. Activity links and
// settings never block; their findings show up as warnings in the review
// step.
func (s *State) ValidateCurrentStep() bool {
	switch s.CurrentStep {
	case StepBasicInfo:
		return s.Form.Title != "" && s.Form.ProjectID != ""
	case StepSections:
		return len(s.Form.Sections) > 0
	case StepQuestions:
		return s.questionCount() > 0
	case StepActivityLinks, StepSettings:
		return true
	case StepReview:
		return s.CanPublish()
	}
	return false
}

func (s *State) questionCount() int {
	n := 0
	for _, sec := range s.Form.Sections {
		n += len(sec.Questions)
	}
	return n
}

func (s *State) linkedQuestionCount() int {
	n := 0
	for _, sec := range s.Form.Sections {
		for i := range sec.Questions {
			if len(sec.Questions[i].ActivityLinks()) > 0 {
				n++
			}
		}
	}
	return n
}

// ReviewChecks runs every publish check, errors first.
func (s *State) ReviewChecks() []Check {
	checks := []Check{
		{
			Key: "title", Severity: SeverityError,
			OK:      s.Form.Title != "",
			Message: "form has a title",
		},
		{
			Key: "project", Severity: SeverityError,
			OK:      s.Form.ProjectID != "",
			Message: "form belongs to a project",
		},
		{
			Key: "sections", Severity: SeverityError,
			OK:      len(s.Form.Sections) > 0,
			Message: "form has at least one section",
		},
		{
			Key: "questions", Severity: SeverityError,
			OK:      s.questionCount() > 0,
			Message: "form has at least one question",
		},
		{
			Key: "conditional_ownership", Severity: SeverityError,
			OK:      s.Form.CheckConditionalOwnership() == nil,
			Message: "no question is nested under two options",
		},
		{
			Key: "description", Severity: SeverityWarning,
			OK:      s.descriptionPresent(),
			Message: "sections have descriptions",
		},
		{
			Key: "activity_links", Severity: SeverityWarning,
			OK:      s.linkedQuestionCount() > 0,
			Message: "at least one question feeds a project activity",
		},
		{
			Key: "notifications", Severity: SeverityWarning,
			OK:      len(s.Form.Settings.NotificationEmails) > 0,
			Message: "submission notifications are configured",
		},
	}
	return checks
}

func (s *State) descriptionPresent() bool {
	for _, sec := range s.Form.Sections {
		if sec.Description != "" {
			return true
		}
	}
	return false
}

// CanPublish requires every error-severity check to pass. Warnings never
// block.
func (s *State) CanPublish() bool {
	for _, c := range s.ReviewChecks() {
		if c.Severity == SeverityError && !c.OK {
			return false
		}
	}
	return true
}
