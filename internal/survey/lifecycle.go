package survey

import (
	"fmt"
	"time"

	"github.com/mohae/deepcopy"
)

// NewQuestionSet starts a fresh lineage: version 1, DRAFT, no questions.
func NewQuestionSet(name, description string, t SetType) *QuestionSet {
	now := time.Now().UTC()
	return &QuestionSet{
		Name:        name,
		Description: description,
		Type:        t,
		Version:     1,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Publish moves a DRAFT set to PUBLISHED and stamps publishedAt. The caller
// is responsible for archiving any other published set of the same type
// before (or atomically with) this transition.
func (s *QuestionSet) Publish(now time.Time) error {
	if s.Status != StatusDraft {
		return fmt.Errorf("%w: publish requires DRAFT, set %d is %s", ErrInvalidTransition, s.ID, s.Status)
	}
	s.Status = StatusPublished
	published := now.UTC()
	s.PublishedAt = &published
	s.UpdatedAt = published
	return nil
}

// Archive moves a PUBLISHED set to ARCHIVED.
func (s *QuestionSet) Archive() error {
	if s.Status != StatusPublished {
		return fmt.Errorf("%w: archive requires PUBLISHED, set %d is %s", ErrInvalidTransition, s.ID, s.Status)
	}
	s.Status = StatusArchived
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateInfo edits name and description. Only DRAFT sets accept edits; this
// guard is the single point keeping live content immutable.
func (s *QuestionSet) UpdateInfo(name, description string) error {
	if !s.Status.IsEditable() {
		return fmt.Errorf("%w: set %d is %s", ErrNotEditable, s.ID, s.Status)
	}
	s.Name = name
	s.Description = description
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// CloneForNewVersion produces the next iteration of this set's lineage: a new
// DRAFT with the same name, description and type and the given version. By
// default the clone starts with no questions; copyQuestions performs an
// explicit deep duplication of the question and option tree with identities
// cleared so the store re-assigns them.
func (s *QuestionSet) CloneForNewVersion(version int, copyQuestions bool) *QuestionSet {
	clone := NewQuestionSet(s.Name, s.Description, s.Type)
	clone.Version = version
	if !copyQuestions {
		return clone
	}
	questions := deepcopy.Copy(s.Questions).([]Question)
	for i := range questions {
		questions[i].ID = 0
		questions[i].SetID = 0
		questions[i].ParentQuestionID = nil
		for j := range questions[i].Options {
			questions[i].Options[j].ID = 0
			questions[i].Options[j].QuestionID = 0
		}
	}
	clone.Questions = questions
	return clone
}

// nextOrder appends after the current maximum. Gaps left by deletions are
// tolerated, so this is max+1, not len+1.
func nextOrder(max int) int {
	if max < 0 {
		max = 0
	}
	return max + 1
}

// renumbered moves the element with the given index to targetOrder (1-based,
// clamped to the collection bounds) and returns a dense 1..n order assignment
// keyed by element index. Relative order of all other elements is preserved.
func renumbered(n, moveIdx, targetOrder int) []int {
	if targetOrder < 1 {
		targetOrder = 1
	}
	if targetOrder > n {
		targetOrder = n
	}
	seq := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != moveIdx {
			seq = append(seq, i)
		}
	}
	seq = append(seq[:targetOrder-1], append([]int{moveIdx}, seq[targetOrder-1:]...)...)

	orders := make([]int, n)
	for pos, idx := range seq {
		orders[idx] = pos + 1
	}
	return orders
}
