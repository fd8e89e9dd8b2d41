package model

// QuestionType discriminates the question union. Every switch over it must
// list all variants; new types get added here first.
type QuestionType string

const (
	TypeText           QuestionType = "text"
	TypeTextarea       QuestionType = "textarea"
	TypeNumber         QuestionType = "number"
	TypeDecimal        QuestionType = "decimal"
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeDropdown       QuestionType = "dropdown"
	TypeLikert         QuestionType = "likert"
	TypeRating         QuestionType = "rating"
	TypeDate           QuestionType = "date"
	TypeTime           QuestionType = "time"
	TypeFile           QuestionType = "file"
	TypeImage          QuestionType = "image"
	TypeLocation       QuestionType = "location"
)

var AllQuestionTypes = []QuestionType{
	TypeText, TypeTextarea, TypeNumber, TypeDecimal,
	TypeSingleChoice, TypeMultipleChoice, TypeDropdown,
	TypeLikert, TypeRating, TypeDate, TypeTime,
	TypeFile, TypeImage, TypeLocation,
}

func (t QuestionType) Valid() bool {
	for _, known := range AllQuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsChoice reports whether the type carries an options list, and so can own
// conditional questions.
func (t QuestionType) IsChoice() bool {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeDropdown:
		return true
	default:
		return false
	}
}

// DataType is the target storage type tag of a question's answer.
type DataType string

const (
	DataString  DataType = "string"
	DataInteger DataType = "integer"
	DataDecimal DataType = "decimal"
	DataDate    DataType = "date"
	DataTime    DataType = "time"
	DataJSON    DataType = "json"
	DataFile    DataType = "file"
)

// DefaultDataType maps each question type to the storage type its answers
// land in.
func (t QuestionType) DefaultDataType() DataType {
	switch t {
	case TypeText, TypeTextarea:
		return DataString
	case TypeNumber, TypeRating:
		return DataInteger
	case TypeDecimal:
		return DataDecimal
	case TypeSingleChoice, TypeDropdown:
		return DataString
	case TypeMultipleChoice, TypeLikert, TypeLocation:
		return DataJSON
	case TypeDate:
		return DataDate
	case TypeTime:
		return DataTime
	case TypeFile, TypeImage:
		return DataFile
	}
	return DataString
}

// ConditionOperator compares a response value against a conditional rule.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
)

// Conditional gates a question (or a whole section) on another question's
// current response value.
type Conditional struct {
	DependsOn string            `json:"dependsOn"`
	ShowWhen  any               `json:"showWhen"`
	Operator  ConditionOperator `json:"operator,omitempty"`
}

type ValidationRule struct {
	Type    string `json:"type"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChoiceOption is one selectable answer of a choice-type question. An option
// exclusively owns the questions nested under it: a conditional question
// exists nowhere else in the form but inside its owning option's
// conditionalQuestions.
type ChoiceOption struct {
	ID                      string     `json:"id"`
	Label                   string     `json:"label"`
	Value                   string     `json:"value"`
	IsOther                 bool       `json:"isOther,omitempty"`
	HasConditionalQuestions bool       `json:"hasConditionalQuestions,omitempty"`
	ConditionalQuestions    []Question `json:"conditionalQuestions,omitempty"`
}

// LikertScale is the shared answer scale of a likert question's statements.
type LikertScale struct {
	Points int      `json:"points"`
	Labels []string `json:"labels,omitempty"`
}

// Question is the union of all 14 question variants, discriminated by Type.
// Variant payloads (Options, Statements, Min/Max/Step, file constraints) are
// only populated for their variant. Field names are the persisted wire
// format and must not change.
type Question struct {
	ID              string           `json:"id"`
	Type            QuestionType     `json:"type"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	IsRequired      bool             `json:"isRequired"`
	Order           int              `json:"order"`
	ValidationRules []ValidationRule `json:"validationRules,omitempty"`
	DataType        DataType         `json:"dataType,omitempty"`
	Conditional     *Conditional     `json:"conditional,omitempty"`

	// IsConditional caches "this question lives under some option" so
	// visibility checks can skip the full option scan. The scan remains the
	// source of truth.
	IsConditional bool `json:"isConditional,omitempty"`

	// LinkedActivity is the legacy singular link, superseded by
	// LinkedActivities. Read through ActivityLinks(), never directly.
	LinkedActivity   *ActivityLink  `json:"linkedActivity,omitempty"`
	LinkedActivities []ActivityLink `json:"linkedActivities,omitempty"`

	// choice variants
	Options []ChoiceOption `json:"options,omitempty"`

	// likert
	Statements []string     `json:"statements,omitempty"`
	Scale      *LikertScale `json:"scale,omitempty"`

	// number, decimal, rating
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`

	// file, image
	AllowedFormats []string `json:"allowedFormats,omitempty"`
	MaxFileSize    int64    `json:"maxFileSize,omitempty"`
}
