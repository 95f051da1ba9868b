package survey

import (
	"context"
	"time"
)

// QuestionSetStore is the persistence contract for question sets. Lookups
// return ErrSetNotFound when the id or type does not resolve.
type QuestionSetStore interface {
	CreateQuestionSet(ctx context.Context, set *QuestionSet) error
	UpdateQuestionSet(ctx context.Context, set *QuestionSet) error
	DeleteQuestionSet(ctx context.Context, id int64) error
	FindQuestionSet(ctx context.Context, id int64) (*QuestionSet, error)
	FindQuestionSetWithQuestions(ctx context.Context, id int64) (*QuestionSet, error)
	FindQuestionSetsByType(ctx context.Context, t SetType) ([]QuestionSet, error)
	FindAllQuestionSets(ctx context.Context) ([]QuestionSet, error)
	MaxVersionByType(ctx context.Context, t SetType) (int, error)
	FindPublishedByType(ctx context.Context, t SetType) (*QuestionSet, error)
	FindPublishedByTypeWithQuestions(ctx context.Context, t SetType) (*QuestionSet, error)
	// ArchivePublishedByType bulk-moves every PUBLISHED set of the type to
	// ARCHIVED, excluding excludeID (0 excludes nothing). Used by the publish
	// orchestration so the one-published-per-type invariant holds.
	ArchivePublishedByType(ctx context.Context, t SetType, excludeID int64, now time.Time) error
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *Question) error
	UpdateQuestion(ctx context.Context, q *Question) error
	DeleteQuestion(ctx context.Context, id int64) error
	FindQuestion(ctx context.Context, id int64) (*Question, error)
	FindQuestionsBySet(ctx context.Context, setID int64) ([]Question, error)
	MaxQuestionOrder(ctx context.Context, setID int64) (int, error)
	UpdateQuestionOrders(ctx context.Context, setID int64, orders map[int64]int) error
	CountQuestionsByPart(ctx context.Context, setID int64) (map[Part]int, error)
}

type OptionStore interface {
	CreateOption(ctx context.Context, o *Option) error
	UpdateOption(ctx context.Context, o *Option) error
	DeleteOption(ctx context.Context, id int64) error
	FindOption(ctx context.Context, id int64) (*Option, error)
	FindOptionsByQuestion(ctx context.Context, questionID int64) ([]Option, error)
	MaxOptionOrder(ctx context.Context, questionID int64) (int, error)
	UpdateOptionOrders(ctx context.Context, questionID int64, orders map[int64]int) error
}

// Store is what the admin service needs from persistence.
type Store interface {
	QuestionSetStore
	QuestionStore
	OptionStore
}
