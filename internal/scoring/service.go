package scoring

import (
	"context"
	"fmt"
	"time"

	"aptisurvey/internal/survey"

	"github.com/google/uuid"
)

// SetSource loads the live question set a submission is scored against.
type SetSource interface {
	FindPublishedByTypeWithQuestions(ctx context.Context, t survey.SetType) (*survey.QuestionSet, error)
}

// Submission is the persisted outcome of one scoring request. The raw
// response stays transient; only the derived result is kept.
type Submission struct {
	ID             string                 `json:"id"`
	SetID          int64                  `json:"set_id"`
	SetVersion     int                    `json:"set_version"`
	AptitudeScore  int                    `json:"aptitude_score"`
	Grade          Grade                  `json:"grade"`
	RecommendedJob string                 `json:"recommended_job"`
	JobTypeTallies map[survey.JobType]int `json:"job_type_tallies"`
	CreatedAt      time.Time              `json:"created_at"`
}

type SubmissionStore interface {
	SaveSubmission(ctx context.Context, sub *Submission) error
	ListSubmissionsBySet(ctx context.Context, setID int64) ([]Submission, error)
}

type Service struct {
	sets SetSource
	subs SubmissionStore
}

func NewService(sets SetSource, subs SubmissionStore) *Service {
	return &Service{sets: sets, subs: subs}
}

type Scored struct {
	SubmissionID string    `json:"submission_id"`
	SetID        int64     `json:"set_id"`
	SetVersion   int       `json:"set_version"`
	Result       Result    `json:"result"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubmitResponse scores a response against the currently published set of
// the given type and records the outcome. A missing published set is the
// caller's content-operations gap, surfaced as ErrPublishedSetNotFound.
func (s *Service) SubmitResponse(ctx context.Context, t survey.SetType, resp Response) (*Scored, error) {
	if _, ok := survey.ParseSetType(string(t)); !ok {
		return nil, fmt.Errorf("%w: unknown set type %q", survey.ErrInvalidInput, t)
	}

	set, err := s.sets.FindPublishedByTypeWithQuestions(ctx, t)
	if err != nil {
		return nil, err
	}

	result := Score(set, resp)
	scored := &Scored{
		SubmissionID: uuid.NewString(),
		SetID:        set.ID,
		SetVersion:   set.Version,
		Result:       result,
		CreatedAt:    time.Now().UTC(),
	}

	sub := &Submission{
		ID:             scored.SubmissionID,
		SetID:          set.ID,
		SetVersion:     set.Version,
		AptitudeScore:  result.AptitudeScore,
		Grade:          result.Grade,
		RecommendedJob: result.RecommendedJob,
		JobTypeTallies: result.JobTypeTallies,
		CreatedAt:      scored.CreatedAt,
	}
	if err := s.subs.SaveSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	return scored, nil
}

func (s *Service) ListSubmissions(ctx context.Context, setID int64) ([]Submission, error) {
	items, err := s.subs.ListSubmissionsBySet(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return items, nil
}
