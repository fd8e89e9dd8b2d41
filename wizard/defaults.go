package wizard

import "github.com/reliefworks/formsync/model"

func floatPtr(f float64) *float64 { return &f }

// defaultQuestion builds a new question of the given type with the defaults
// the editor starts from. The switch is exhaustive over all question types.
func defaultQuestion(t model.QuestionType) model.Question {
	q := model.Question{
		ID:         newID(),
		Type:       t,
		Title:      "",
		IsRequired: false,
		DataType:   t.DefaultDataType(),
	}

	switch t {
	case model.TypeText, model.TypeTextarea:
		// free text needs nothing beyond the common fields

	case model.TypeNumber:
		q.Min = floatPtr(0)
		q.Max = floatPtr(100)
		q.Step = floatPtr(1)

	case model.TypeDecimal:
		q.Min = floatPtr(0)
		q.Max = floatPtr(100)
		q.Step = floatPtr(0.1)

	case model.TypeSingleChoice, model.TypeMultipleChoice, model.TypeDropdown:
		q.Options = []model.ChoiceOption{
			{ID: newID(), Label: "Option 1", Value: "option_1"},
			{ID: newID(), Label: "Option 2", Value: "option_2"},
		}

	case model.TypeLikert:
		q.Statements = []string{"Statement 1"}
		q.Scale = &model.LikertScale{
			Points: 5,
			Labels: []string{
				"Strongly disagree", "Disagree", "Neutral", "Agree", "Strongly agree",
			},
		}

	case model.TypeRating:
		q.Min = floatPtr(1)
		q.Max = floatPtr(5)
		q.Step = floatPtr(1)

	case model.TypeDate, model.TypeTime:
		// picker types carry no extra payload

	case model.TypeFile:
		q.AllowedFormats = []string{"pdf", "doc", "docx", "xls", "xlsx"}
		q.MaxFileSize = 10 << 20

	case model.TypeImage:
		q.AllowedFormats = []string{"jpg", "jpeg", "png", "gif"}
		q.MaxFileSize = 5 << 20

	case model.TypeLocation:
		// coordinates are captured by the renderer, nothing to configure
	}

	return q
}
