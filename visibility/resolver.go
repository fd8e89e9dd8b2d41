// Package visibility decides which questions of a form are shown: main
// questions always, conditional questions only while their owning option is
// selected. Everything here is a pure function over a snapshot of questions
// and response values; nothing is cached between calls.
package visibility

import (
	"fmt"
	"strings"

	"github.com/reliefworks/formsync/model"
)

// IsConditional reports whether the question lives under some option's
// conditionalQuestions. The explicit IsConditional marker short-circuits the
// scan; without it, membership is decided by walking every option of every
// other question. If a question is (incorrectly) nested under two options,
// the first match wins — the scan does not detect the violation.
func IsConditional(q model.Question, all []model.Question) bool {
	if q.IsConditional {
		return true
	}
	for _, other := range all {
		if other.ID == q.ID {
			continue
		}
		for _, opt := range other.Options {
			for _, child := range opt.ConditionalQuestions {
				if child.ID == q.ID {
					return true
				}
			}
		}
	}
	return false
}

// FilterMainQuestions returns the questions that are not conditional on any
// option, preserving their relative order. This is the default display list
// of a section editor or renderer.
func FilterMainQuestions(all []model.Question) []model.Question {
	main := []model.Question{}
	for _, q := range all {
		if !IsConditional(q, all) {
			main = append(main, q)
		}
	}
	return main
}

// ConditionalQuestionsForOption resolves the live question objects nested
// under one option of a choice-type parent. Non-choice parents and unknown
// option ids yield an empty result, not an error.
func ConditionalQuestionsForOption(parent model.Question, optionID string, all []model.Question) []model.Question {
	if !parent.Type.IsChoice() {
		return nil
	}
	for _, opt := range parent.Options {
		if opt.ID != optionID {
			continue
		}
		resolved := []model.Question{}
		for _, child := range opt.ConditionalQuestions {
			resolved = append(resolved, resolve(child.ID, all))
		}
		return resolved
	}
	return nil
}

func resolve(id string, all []model.Question) model.Question {
	for _, q := range all {
		if q.ID == id {
			return q
		}
	}
	return model.Question{ID: id}
}

// SectionVisible evaluates a section-level conditional against the current
// response values. Sections without a conditional are always visible.
func SectionVisible(sec model.Section, responses map[string]any) bool {
	if sec.Conditional == nil {
		return true
	}
	return Matches(*sec.Conditional, responses)
}

// VisibleQuestions computes the display list of a section given the current
// response values: main questions whose own conditional (if any) matches,
// each followed by the conditional children of its currently selected
// options.
func VisibleQuestions(sec model.Section, responses map[string]any) []model.Question {
	all := []model.Question{}
	for _, q := range sec.Questions {
		all = append(all, flatten(q)...)
	}

	visible := []model.Question{}
	for _, q := range FilterMainQuestions(all) {
		if q.Conditional != nil && !Matches(*q.Conditional, responses) {
			continue
		}
		visible = append(visible, q)
		visible = append(visible, expandSelected(q, responses, all)...)
	}
	return visible
}

func flatten(q model.Question) []model.Question {
	all := []model.Question{q}
	for _, opt := range q.Options {
		for _, child := range opt.ConditionalQuestions {
			all = append(all, flatten(child)...)
		}
	}
	return all
}

func expandSelected(q model.Question, responses map[string]any, all []model.Question) []model.Question {
	if !q.Type.IsChoice() {
		return nil
	}
	value, answered := responses[q.ID]
	if !answered {
		return nil
	}

	expanded := []model.Question{}
	for _, opt := range q.Options {
		if len(opt.ConditionalQuestions) == 0 || !optionSelected(opt, value) {
			continue
		}
		for _, child := range ConditionalQuestionsForOption(q, opt.ID, all) {
			if child.Conditional != nil && !Matches(*child.Conditional, responses) {
				continue
			}
			expanded = append(expanded, child)
			expanded = append(expanded, expandSelected(child, responses, all)...)
		}
	}
	return expanded
}

func optionSelected(opt model.ChoiceOption, value any) bool {
	switch v := value.(type) {
	case []any:
		// multiple choice stores the selected values as a list
		for _, item := range v {
			if fmt.Sprint(item) == opt.Value {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if item == opt.Value {
				return true
			}
		}
		return false
	default:
		return fmt.Sprint(value) == opt.Value
	}
}

// Matches evaluates one conditional rule against the response values. A
// missing answer never matches. An unknown operator falls back to equality.
func Matches(cond model.Conditional, responses map[string]any) bool {
	value, answered := responses[cond.DependsOn]
	if !answered {
		return false
	}

	switch cond.Operator {
	case model.OpNotEquals:
		return fmt.Sprint(value) != fmt.Sprint(cond.ShowWhen)
	case model.OpContains:
		return strings.Contains(fmt.Sprint(value), fmt.Sprint(cond.ShowWhen))
	case model.OpGreaterThan:
		v, okV := toFloat(value)
		w, okW := toFloat(cond.ShowWhen)
		return okV && okW && v > w
	case model.OpLessThan:
		v, okV := toFloat(value)
		w, okW := toFloat(cond.ShowWhen)
		return okV && okW && v < w
	case model.OpEquals:
		fallthrough
	default:
		return fmt.Sprint(value) == fmt.Sprint(cond.ShowWhen)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		var f float64
		_, err := fmt.Sscanf(n, "%g", &f)
		return f, err == nil
	}
	return 0, false
}
