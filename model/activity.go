package model

// AggregationType says how a question's response values roll up into a KPI.
type AggregationType string

const (
	AggSum     AggregationType = "SUM"
	AggCount   AggregationType = "COUNT"
	AggAverage AggregationType = "AVERAGE"
	AggMin     AggregationType = "MIN"
	AggMax     AggregationType = "MAX"
)

func (a AggregationType) Valid() bool {
	switch a {
	case AggSum, AggCount, AggAverage, AggMin, AggMax:
		return true
	}
	return false
}

// ValidAggregations lists the aggregation types that make sense for answers
// of the given question type. COUNT works for anything; numeric rollups need
// numeric answers.
func ValidAggregations(t QuestionType) []AggregationType {
	switch t {
	case TypeNumber, TypeDecimal, TypeRating:
		return []AggregationType{AggSum, AggCount, AggAverage, AggMin, AggMax}
	case TypeLikert:
		return []AggregationType{AggCount, AggAverage, AggMin, AggMax}
	case TypeSingleChoice, TypeMultipleChoice, TypeDropdown,
		TypeText, TypeTextarea, TypeDate, TypeTime,
		TypeFile, TypeImage, TypeLocation:
		return []AggregationType{AggCount}
	}
	return nil
}

// KPIContribution describes how answers feed a project KPI. Weight scales
// the aggregated value and stays within [0,1].
type KPIContribution struct {
	KPIID           string          `json:"kpiId"`
	Weight          float64         `json:"weight"`
	AggregationType AggregationType `json:"aggregationType"`
}

func (k KPIContribution) Validate() bool {
	return k.Weight >= 0 && k.Weight <= 1 && k.AggregationType.Valid()
}

// ActivityLink ties a question to one project activity. The project, outcome,
// activity and KPI ids reference external project data by value.
type ActivityLink struct {
	ProjectID       string           `json:"projectId"`
	OutcomeID       string           `json:"outcomeId"`
	ActivityID      string           `json:"activityId"`
	KPIContribution *KPIContribution `json:"kpiContribution,omitempty"`
}

// ActivityLinks normalizes the legacy singular link and the plural list into
// one view: always a slice, possibly empty. The plural field wins when both
// are set. This is the only place the duality is resolved; everything else
// reads through here.
func (q *Question) ActivityLinks() []ActivityLink {
	if len(q.LinkedActivities) > 0 {
		return q.LinkedActivities
	}
	if q.LinkedActivity != nil {
		return []ActivityLink{*q.LinkedActivity}
	}
	return nil
}

// SetActivityLinks writes the plural representation and drops the legacy
// field so the two can never disagree. Index 0 is the primary link for KPI
// contribution edits.
func (q *Question) SetActivityLinks(links []ActivityLink) {
	q.LinkedActivities = links
	q.LinkedActivity = nil
}

// PrimaryActivityLink returns the link whose KPI contribution the editor
// operates on, or nil when the question is unlinked.
func (q *Question) PrimaryActivityLink() *ActivityLink {
	links := q.ActivityLinks()
	if len(links) == 0 {
		return nil
	}
	return &links[0]
}
