package survey

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrSetNotFound          = errors.New("question set not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrOptionNotFound       = errors.New("option not found")
	ErrNotEditable          = errors.New("question set is not editable")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPublishedSetNotFound = errors.New("no published question set for type")
)

// SetType partitions the version and publish namespace: version numbers are
// per type and at most one set per type may be published at a time.
type SetType string

const (
	SetTypeBasic    SetType = "BASIC"
	SetTypeAptitude SetType = "APTITUDE"
)

func ParseSetType(v string) (SetType, bool) {
	switch SetType(strings.ToUpper(strings.TrimSpace(v))) {
	case SetTypeBasic:
		return SetTypeBasic, true
	case SetTypeAptitude:
		return SetTypeAptitude, true
	default:
		return "", false
	}
}

type SetStatus string

const (
	StatusDraft     SetStatus = "DRAFT"
	StatusPublished SetStatus = "PUBLISHED"
	StatusArchived  SetStatus = "ARCHIVED"
)

// IsEditable reports whether content mutations are allowed. Only DRAFT sets
// may be edited; published and archived content is locked.
func (s SetStatus) IsEditable() bool {
	return s == StatusDraft
}

// Part classifies how a question contributes to the aptitude score.
type Part string

const (
	PartNone Part = ""
	Part1    Part = "PART1"
	Part2    Part = "PART2"
	Part3    Part = "PART3"
)

func ParsePart(v string) (Part, bool) {
	switch Part(strings.ToUpper(strings.TrimSpace(v))) {
	case PartNone:
		return PartNone, true
	case Part1:
		return Part1, true
	case Part2:
		return Part2, true
	case Part3:
		return Part3, true
	default:
		return PartNone, false
	}
}

// QuestionType is a presentation hint for the client; it is not scored.
type QuestionType string

const (
	QTypeText        QuestionType = "TEXT"
	QTypeRadio       QuestionType = "RADIO"
	QTypeCheckbox    QuestionType = "CHECKBOX"
	QTypeRange       QuestionType = "RANGE"
	QTypeConditional QuestionType = "CONDITIONAL"
)

func ParseQuestionType(v string) (QuestionType, bool) {
	switch QuestionType(strings.ToUpper(strings.TrimSpace(v))) {
	case QTypeText:
		return QTypeText, true
	case QTypeRadio:
		return QTypeRadio, true
	case QTypeCheckbox:
		return QTypeCheckbox, true
	case QTypeRange:
		return QTypeRange, true
	case QTypeConditional:
		return QTypeConditional, true
	default:
		return "", false
	}
}

// JobType is the categorical tag accumulated from PART3 answers.
type JobType string

const (
	JobTypeFrontend JobType = "F"
	JobTypeBackend  JobType = "B"
	JobTypeData     JobType = "D"
)

// JobTypes lists every code in a fixed order so tally iteration stays
// deterministic regardless of map ordering.
var JobTypes = []JobType{JobTypeFrontend, JobTypeBackend, JobTypeData}

// JobFullStack is the generalist recommendation used when no code wins the
// tally outright.
const JobFullStack = "Full-Stack Developer"

func ParseJobType(v string) (JobType, bool) {
	switch JobType(strings.ToUpper(strings.TrimSpace(v))) {
	case JobTypeFrontend:
		return JobTypeFrontend, true
	case JobTypeBackend:
		return JobTypeBackend, true
	case JobTypeData:
		return JobTypeData, true
	default:
		return "", false
	}
}

// RecommendedJob maps a code to its job category. The table is fixed and
// independent of any question-set content.
func (j JobType) RecommendedJob() string {
	switch j {
	case JobTypeFrontend:
		return "Frontend Developer"
	case JobTypeBackend:
		return "Backend Developer"
	case JobTypeData:
		return "Data Engineer"
	default:
		return JobFullStack
	}
}

type QuestionSet struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        SetType    `json:"type"`
	Version     int        `json:"version"`
	Status      SetStatus  `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Question struct {
	ID               int64           `json:"id"`
	SetID            int64           `json:"set_id"`
	Order            int             `json:"question_order"`
	Text             string          `json:"text"`
	QuestionType     QuestionType    `json:"question_type"`
	IsRequired       bool            `json:"is_required"`
	FieldKey         string          `json:"field_key"`
	ParentQuestionID *int64          `json:"parent_question_id,omitempty"`
	Part             Part            `json:"part,omitempty"`
	ShowCondition    json.RawMessage `json:"show_condition,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Options          []Option        `json:"options,omitempty"`
}

type Option struct {
	ID         int64   `json:"id"`
	QuestionID int64   `json:"question_id"`
	Order      int     `json:"option_order"`
	Text       string  `json:"text"`
	Value      string  `json:"value,omitempty"`
	Score      int     `json:"score"`
	JobType    JobType `json:"job_type,omitempty"`
	IsCorrect  bool    `json:"is_correct"`
}
