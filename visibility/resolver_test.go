package visibility

import (
	"testing"

	"github.com/reliefworks/formsync/model"
)

// scenarioQuestions builds the canonical fixture: Q1 single-choice with
// option O1 ("Yes") owning conditional question Q2, option O2 ("No") owning
// nothing.
func scenarioQuestions() (q1, q2 model.Question, all []model.Question) {
	q2 = model.Question{ID: "q2", Type: model.TypeText, Title: "Which ones?", Order: 1}
	q1 = model.Question{
		ID: "q1", Type: model.TypeSingleChoice, Title: "Any difficulties?", Order: 1,
		Options: []model.ChoiceOption{
			{ID: "o1", Label: "Yes", Value: "yes", HasConditionalQuestions: true,
				ConditionalQuestions: []model.Question{q2}},
			{ID: "o2", Label: "No", Value: "no"},
		},
	}
	return q1, q2, []model.Question{q1, q2}
}

func TestIsConditional(t *testing.T) {
	q1, q2, all := scenarioQuestions()

	if IsConditional(q1, all) {
		t.Errorf("q1 is a main question")
	}
	if !IsConditional(q2, all) {
		t.Errorf("q2 is nested under o1 and must be conditional")
	}
}

func TestIsConditionalMarkerFastPath(t *testing.T) {
	q := model.Question{ID: "qx", Type: model.TypeText, IsConditional: true}

	// the marker alone decides, with no other question owning qx
	if !IsConditional(q, []model.Question{q}) {
		t.Errorf("explicit marker should classify without a scan match")
	}
}

func TestFilterMainQuestions(t *testing.T) {
	q1, q2, all := scenarioQuestions()

	main := FilterMainQuestions(all)
	if len(main) != 1 || main[0].ID != q1.ID {
		t.Fatalf("expected [q1], got %d questions", len(main))
	}
	for _, q := range main {
		if q.ID == q2.ID {
			t.Errorf("conditional q2 leaked into main list")
		}
	}
}

func TestFilterMainQuestionsPreservesOrder(t *testing.T) {
	qs := []model.Question{
		{ID: "a", Type: model.TypeText},
		{ID: "b", Type: model.TypeText},
		{ID: "c", Type: model.TypeText},
	}
	main := FilterMainQuestions(qs)
	if len(main) != 3 {
		t.Fatalf("expected all 3, got %d", len(main))
	}
	for i, id := range []string{"a", "b", "c"} {
		if main[i].ID != id {
			t.Fatalf("order not preserved: %v", main)
		}
	}
}

func TestConditionalQuestionsForOption(t *testing.T) {
	q1, q2, all := scenarioQuestions()

	got := ConditionalQuestionsForOption(q1, "o1", all)
	if len(got) != 1 || got[0].ID != q2.ID {
		t.Fatalf("o1 should resolve [q2], got %v", got)
	}
	if got[0].Title != q2.Title {
		t.Errorf("resolution should return the live question object")
	}

	if got := ConditionalQuestionsForOption(q1, "o2", all); len(got) != 0 {
		t.Errorf("o2 owns nothing, got %v", got)
	}

	notChoice := model.Question{ID: "q3", Type: model.TypeText}
	if got := ConditionalQuestionsForOption(notChoice, "o1", all); got != nil {
		t.Errorf("non-choice parent should yield empty, got %v", got)
	}
}

func TestVisibleQuestions(t *testing.T) {
	q1, _, _ := scenarioQuestions()
	sec := model.Section{ID: "s1", Questions: []model.Question{q1}}

	tests := []struct {
		name      string
		responses map[string]any
		want      []string
	}{
		{"unanswered", map[string]any{}, []string{"q1"}},
		{"owning option selected", map[string]any{"q1": "yes"}, []string{"q1", "q2"}},
		{"other option selected", map[string]any{"q1": "no"}, []string{"q1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleQuestions(sec, tt.responses)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d questions, want %v", len(got), tt.want)
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestVisibleQuestionsMultipleChoice(t *testing.T) {
	q := model.Question{
		ID: "q1", Type: model.TypeMultipleChoice,
		Options: []model.ChoiceOption{
			{ID: "o1", Value: "water", ConditionalQuestions: []model.Question{
				{ID: "q2", Type: model.TypeText},
			}},
			{ID: "o2", Value: "food"},
		},
	}
	sec := model.Section{Questions: []model.Question{q}}

	got := VisibleQuestions(sec, map[string]any{"q1": []any{"food", "water"}})
	if len(got) != 2 || got[1].ID != "q2" {
		t.Fatalf("selecting water among others should expand q2, got %d", len(got))
	}
}

func TestSectionVisible(t *testing.T) {
	sec := model.Section{
		ID: "s2",
		Conditional: &model.Conditional{
			DependsOn: "q1", ShowWhen: "yes", Operator: model.OpEquals,
		},
	}

	if SectionVisible(sec, map[string]any{}) {
		t.Errorf("unanswered dependency should hide the section")
	}
	if !SectionVisible(sec, map[string]any{"q1": "yes"}) {
		t.Errorf("matching answer should show the section")
	}
	if SectionVisible(sec, map[string]any{"q1": "no"}) {
		t.Errorf("non-matching answer should hide the section")
	}

	unconditional := model.Section{ID: "s1"}
	if !SectionVisible(unconditional, nil) {
		t.Errorf("sections without a conditional are always visible")
	}
}

func TestMatchesOperators(t *testing.T) {
	tests := []struct {
		name string
		cond model.Conditional
		resp map[string]any
		want bool
	}{
		{"equals hit", model.Conditional{DependsOn: "q", ShowWhen: "a", Operator: model.OpEquals}, map[string]any{"q": "a"}, true},
		{"equals miss", model.Conditional{DependsOn: "q", ShowWhen: "a", Operator: model.OpEquals}, map[string]any{"q": "b"}, false},
		{"default operator is equals", model.Conditional{DependsOn: "q", ShowWhen: "a"}, map[string]any{"q": "a"}, true},
		{"not equals", model.Conditional{DependsOn: "q", ShowWhen: "a", Operator: model.OpNotEquals}, map[string]any{"q": "b"}, true},
		{"contains", model.Conditional{DependsOn: "q", ShowWhen: "ate", Operator: model.OpContains}, map[string]any{"q": "water"}, true},
		{"greater than", model.Conditional{DependsOn: "q", ShowWhen: 10, Operator: model.OpGreaterThan}, map[string]any{"q": float64(12)}, true},
		{"greater than miss", model.Conditional{DependsOn: "q", ShowWhen: 10, Operator: model.OpGreaterThan}, map[string]any{"q": float64(9)}, false},
		{"less than", model.Conditional{DependsOn: "q", ShowWhen: 10, Operator: model.OpLessThan}, map[string]any{"q": float64(3)}, true},
		{"missing answer never matches", model.Conditional{DependsOn: "q", ShowWhen: "a", Operator: model.OpNotEquals}, map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.cond, tt.resp); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
