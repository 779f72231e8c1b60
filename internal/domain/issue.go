package domain

import "time"

// IssueStatus enumerates lifecycle states for reported issues.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusAccepted   IssueStatus = "Accepted"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusResolved   IssueStatus = "Resolved"
)

// Field names of an issue document in the store. Writers must use these
// keys so that independent clients converge on the same fields.
const (
	FieldStatus         = "status"
	FieldReporterID     = "reporterId"
	FieldReporterEmail  = "reporterEmail"
	FieldContractorName = "contractorName"
	FieldTipAmount      = "tipAmount"
	FieldTipSkipped     = "tipSkipped"
	FieldIsReviewed     = "isReviewed"
	FieldRating         = "rating"
	FieldReview         = "review"
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldLocationText   = "locationText"
	FieldImageURL       = "imageUrl"
	FieldAIAnalysis     = "aiAnalysis"
)

// statusRank orders lifecycle states. Unknown or absent status ranks as Open.
var statusRank = map[IssueStatus]int{
	IssueStatusOpen:       0,
	IssueStatusAccepted:   1,
	IssueStatusInProgress: 2,
	IssueStatusResolved:   3,
}

// ProgressStep maps a status to its ordinal 0-3 for presentation.
// Total: any unknown status maps to 0.
func ProgressStep(status IssueStatus) int {
	return statusRank[status]
}

// KnownStatus reports whether status is one of the defined lifecycle states.
func KnownStatus(status IssueStatus) bool {
	_, ok := statusRank[status]
	return ok
}

// AIAnalysis carries the advisory categorization attached at report
// time by the external analysis provider. Stored verbatim, never
// validated.
type AIAnalysis struct {
	Category string
	Summary  string
}

// Issue is the aggregate for a reported civic problem.
type Issue struct {
	ID             string
	Status         IssueStatus
	ReporterID     string
	ReporterEmail  string
	ContractorName string
	TipAmount      int64
	TipSkipped     bool
	IsReviewed     bool
	Rating         int
	Review         string
	Title          string
	Description    string
	LocationText   string
	ImageURL       string
	AIAnalysis     *AIAnalysis
	CreatedAt      time.Time
}

// TipDecisionMade reports whether the one-time tip decision has been
// observed: either a positive tip total or an explicit skip.
func (i Issue) TipDecisionMade() bool {
	return i.TipAmount > 0 || i.TipSkipped
}

// IssueFromFields decodes a stored document into an Issue. Missing
// status defaults to Open; numeric fields tolerate the float64 shape
// JSON decoding produces.
func IssueFromFields(id string, createdAt time.Time, fields map[string]any) Issue {
	issue := Issue{
		ID:             id,
		Status:         IssueStatusOpen,
		ReporterID:     asString(fields[FieldReporterID]),
		ReporterEmail:  asString(fields[FieldReporterEmail]),
		ContractorName: asString(fields[FieldContractorName]),
		TipAmount:      asInt64(fields[FieldTipAmount]),
		TipSkipped:     asBool(fields[FieldTipSkipped]),
		IsReviewed:     asBool(fields[FieldIsReviewed]),
		Rating:         int(asInt64(fields[FieldRating])),
		Review:         asString(fields[FieldReview]),
		Title:          asString(fields[FieldTitle]),
		Description:    asString(fields[FieldDescription]),
		LocationText:   asString(fields[FieldLocationText]),
		ImageURL:       asString(fields[FieldImageURL]),
		CreatedAt:      createdAt,
	}
	if status := IssueStatus(asString(fields[FieldStatus])); KnownStatus(status) && status != "" {
		issue.Status = status
	}
	if raw, ok := fields[FieldAIAnalysis].(map[string]any); ok {
		issue.AIAnalysis = &AIAnalysis{
			Category: asString(raw["category"]),
			Summary:  asString(raw["summary"]),
		}
	}
	return issue
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
