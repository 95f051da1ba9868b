package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Service orchestrates question-set lifecycle transitions and question/option
// CRUD. Every mutation is guarded by the owning set's editability; publish
// runs under a per-type critical section so two concurrent publishes can
// never leave two sets of one type published at once.
type Service struct {
	store Store

	mu       sync.Mutex
	typeLock map[SetType]*sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		typeLock: make(map[SetType]*sync.Mutex),
	}
}

func (s *Service) publishLock(t SetType) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.typeLock[t]
	if !ok {
		l = &sync.Mutex{}
		s.typeLock[t] = l
	}
	return l
}

type CreateQuestionSetInput struct {
	Name        string
	Description string
	Type        SetType
}

func (s *Service) CreateQuestionSet(ctx context.Context, in CreateQuestionSetInput) (*QuestionSet, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, ok := ParseSetType(string(in.Type)); !ok {
		return nil, fmt.Errorf("%w: unknown set type %q", ErrInvalidInput, in.Type)
	}

	set := NewQuestionSet(in.Name, in.Description, in.Type)
	if err := s.store.CreateQuestionSet(ctx, set); err != nil {
		return nil, fmt.Errorf("create question set: %w", err)
	}
	return set, nil
}

func (s *Service) GetQuestionSet(ctx context.Context, id int64) (*QuestionSet, error) {
	return s.store.FindQuestionSet(ctx, id)
}

func (s *Service) GetQuestionSetWithQuestions(ctx context.Context, id int64) (*QuestionSet, error) {
	return s.store.FindQuestionSetWithQuestions(ctx, id)
}

func (s *Service) ListQuestionSetsByType(ctx context.Context, t SetType) ([]QuestionSet, error) {
	if _, ok := ParseSetType(string(t)); !ok {
		return nil, fmt.Errorf("%w: unknown set type %q", ErrInvalidInput, t)
	}
	return s.store.FindQuestionSetsByType(ctx, t)
}

func (s *Service) ListQuestionSets(ctx context.Context) ([]QuestionSet, error) {
	return s.store.FindAllQuestionSets(ctx)
}

func (s *Service) UpdateQuestionSet(ctx context.Context, id int64, name, description string) (*QuestionSet, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	set, err := s.store.FindQuestionSet(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := set.UpdateInfo(name, description); err != nil {
		return nil, err
	}
	if err := s.store.UpdateQuestionSet(ctx, set); err != nil {
		return nil, fmt.Errorf("update question set: %w", err)
	}
	return set, nil
}

// DeleteQuestionSet removes a DRAFT set. Non-draft sets are rejected, never
// silently skipped.
func (s *Service) DeleteQuestionSet(ctx context.Context, id int64) error {
	set, err := s.store.FindQuestionSet(ctx, id)
	if err != nil {
		return err
	}
	if !set.Status.IsEditable() {
		return fmt.Errorf("%w: set %d is %s", ErrNotEditable, id, set.Status)
	}
	if err := s.store.DeleteQuestionSet(ctx, id); err != nil {
		return fmt.Errorf("delete question set: %w", err)
	}
	return nil
}

// PublishQuestionSet archives every other published set of the target's type,
// then publishes the target. The whole sequence runs under the type's lock so
// concurrent publishes serialize and at most one set per type is PUBLISHED at
// any observable instant.
func (s *Service) PublishQuestionSet(ctx context.Context, id int64) (*QuestionSet, error) {
	set, err := s.store.FindQuestionSet(ctx, id)
	if err != nil {
		return nil, err
	}

	lock := s.publishLock(set.Type)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent publish may have raced the first
	// load and already moved this set out of DRAFT.
	set, err = s.store.FindQuestionSet(ctx, id)
	if err != nil {
		return nil, err
	}

	// Validate the transition before touching any sibling: a rejected
	// publish must leave the currently live set alone.
	now := time.Now().UTC()
	if err := set.Publish(now); err != nil {
		return nil, err
	}
	if err := s.store.ArchivePublishedByType(ctx, set.Type, set.ID, now); err != nil {
		return nil, fmt.Errorf("archive published sets: %w", err)
	}
	if err := s.store.UpdateQuestionSet(ctx, set); err != nil {
		return nil, fmt.Errorf("publish question set: %w", err)
	}
	return set, nil
}

// CloneQuestionSet starts the next version of a set's lineage as a fresh
// DRAFT at max(version for type)+1. The clone is empty unless copyQuestions
// explicitly requests a deep duplication of the content tree.
func (s *Service) CloneQuestionSet(ctx context.Context, id int64, copyQuestions bool) (*QuestionSet, error) {
	src, err := s.store.FindQuestionSetWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}

	maxVersion, err := s.store.MaxVersionByType(ctx, src.Type)
	if err != nil {
		return nil, fmt.Errorf("max version: %w", err)
	}

	clone := src.CloneForNewVersion(maxVersion+1, copyQuestions)
	questions := clone.Questions
	clone.Questions = nil
	if err := s.store.CreateQuestionSet(ctx, clone); err != nil {
		return nil, fmt.Errorf("create clone: %w", err)
	}
	for i := range questions {
		q := questions[i]
		options := q.Options
		q.SetID = clone.ID
		q.Options = nil
		if err := s.store.CreateQuestion(ctx, &q); err != nil {
			return nil, fmt.Errorf("copy question: %w", err)
		}
		for j := range options {
			o := options[j]
			o.QuestionID = q.ID
			if err := s.store.CreateOption(ctx, &o); err != nil {
				return nil, fmt.Errorf("copy option: %w", err)
			}
			q.Options = append(q.Options, o)
		}
		clone.Questions = append(clone.Questions, q)
	}
	return clone, nil
}

type AddQuestionInput struct {
	SetID            int64
	Text             string
	QuestionType     QuestionType
	IsRequired       bool
	FieldKey         string
	ParentQuestionID *int64
	Part             Part
	ShowCondition    json.RawMessage
	Metadata         json.RawMessage
}

func (s *Service) AddQuestion(ctx context.Context, in AddQuestionInput) (*Question, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.FieldKey = strings.TrimSpace(in.FieldKey)
	if in.Text == "" || in.FieldKey == "" {
		return nil, fmt.Errorf("%w: text and field_key are required", ErrInvalidInput)
	}
	if _, ok := ParseQuestionType(string(in.QuestionType)); !ok {
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, in.QuestionType)
	}
	if _, ok := ParsePart(string(in.Part)); !ok {
		return nil, fmt.Errorf("%w: unknown part %q", ErrInvalidInput, in.Part)
	}

	set, err := s.editableSet(ctx, in.SetID)
	if err != nil {
		return nil, err
	}
	if err := s.checkFieldKeyFree(ctx, set.ID, in.FieldKey, 0); err != nil {
		return nil, err
	}

	maxOrder, err := s.store.MaxQuestionOrder(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("max question order: %w", err)
	}

	q := &Question{
		SetID:            set.ID,
		Order:            nextOrder(maxOrder),
		Text:             in.Text,
		QuestionType:     in.QuestionType,
		IsRequired:       in.IsRequired,
		FieldKey:         in.FieldKey,
		ParentQuestionID: in.ParentQuestionID,
		Part:             in.Part,
		ShowCondition:    in.ShowCondition,
		Metadata:         in.Metadata,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

type UpdateQuestionInput struct {
	QuestionID       int64
	Text             string
	QuestionType     QuestionType
	IsRequired       bool
	FieldKey         string
	ParentQuestionID *int64
	Part             Part
	ShowCondition    json.RawMessage
	Metadata         json.RawMessage
}

func (s *Service) UpdateQuestion(ctx context.Context, in UpdateQuestionInput) (*Question, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.FieldKey = strings.TrimSpace(in.FieldKey)
	if in.Text == "" || in.FieldKey == "" {
		return nil, fmt.Errorf("%w: text and field_key are required", ErrInvalidInput)
	}
	if _, ok := ParseQuestionType(string(in.QuestionType)); !ok {
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, in.QuestionType)
	}
	if _, ok := ParsePart(string(in.Part)); !ok {
		return nil, fmt.Errorf("%w: unknown part %q", ErrInvalidInput, in.Part)
	}

	q, err := s.store.FindQuestion(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableSet(ctx, q.SetID); err != nil {
		return nil, err
	}
	if err := s.checkFieldKeyFree(ctx, q.SetID, in.FieldKey, q.ID); err != nil {
		return nil, err
	}

	q.Text = in.Text
	q.QuestionType = in.QuestionType
	q.IsRequired = in.IsRequired
	q.FieldKey = in.FieldKey
	q.ParentQuestionID = in.ParentQuestionID
	q.Part = in.Part
	q.ShowCondition = in.ShowCondition
	q.Metadata = in.Metadata
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes a question without renumbering its siblings; gaps
// are tolerated until an explicit reorder.
func (s *Service) DeleteQuestion(ctx context.Context, questionID int64) error {
	q, err := s.store.FindQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if _, err := s.editableSet(ctx, q.SetID); err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	return nil
}

// ReorderQuestion moves a question to newOrder and renumbers all siblings to
// a dense 1..n sequence, preserving the relative order of untouched siblings.
func (s *Service) ReorderQuestion(ctx context.Context, questionID int64, newOrder int) error {
	q, err := s.store.FindQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if _, err := s.editableSet(ctx, q.SetID); err != nil {
		return err
	}

	siblings, err := s.store.FindQuestionsBySet(ctx, q.SetID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Order < siblings[j].Order })

	moveIdx := -1
	for i := range siblings {
		if siblings[i].ID == questionID {
			moveIdx = i
			break
		}
	}
	if moveIdx < 0 {
		return ErrQuestionNotFound
	}

	orders := renumbered(len(siblings), moveIdx, newOrder)
	assignment := make(map[int64]int, len(siblings))
	for i := range siblings {
		assignment[siblings[i].ID] = orders[i]
	}
	if err := s.store.UpdateQuestionOrders(ctx, q.SetID, assignment); err != nil {
		return fmt.Errorf("update question orders: %w", err)
	}
	return nil
}

type AddOptionInput struct {
	QuestionID int64
	Text       string
	Value      string
	Score      int
	JobType    JobType
	IsCorrect  bool
}

func (s *Service) AddOption(ctx context.Context, in AddOptionInput) (*Option, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if in.JobType != "" {
		if _, ok := ParseJobType(string(in.JobType)); !ok {
			return nil, fmt.Errorf("%w: unknown job type %q", ErrInvalidInput, in.JobType)
		}
	}

	q, err := s.store.FindQuestion(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableSet(ctx, q.SetID); err != nil {
		return nil, err
	}

	maxOrder, err := s.store.MaxOptionOrder(ctx, q.ID)
	if err != nil {
		return nil, fmt.Errorf("max option order: %w", err)
	}

	o := &Option{
		QuestionID: q.ID,
		Order:      nextOrder(maxOrder),
		Text:       in.Text,
		Value:      strings.TrimSpace(in.Value),
		Score:      in.Score,
		JobType:    in.JobType,
		IsCorrect:  in.IsCorrect,
	}
	if err := s.store.CreateOption(ctx, o); err != nil {
		return nil, fmt.Errorf("create option: %w", err)
	}
	return o, nil
}

type UpdateOptionInput struct {
	OptionID  int64
	Text      string
	Value     string
	Score     int
	JobType   JobType
	IsCorrect bool
}

func (s *Service) UpdateOption(ctx context.Context, in UpdateOptionInput) (*Option, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if in.JobType != "" {
		if _, ok := ParseJobType(string(in.JobType)); !ok {
			return nil, fmt.Errorf("%w: unknown job type %q", ErrInvalidInput, in.JobType)
		}
	}

	o, err := s.store.FindOption(ctx, in.OptionID)
	if err != nil {
		return nil, err
	}
	q, err := s.store.FindQuestion(ctx, o.QuestionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.editableSet(ctx, q.SetID); err != nil {
		return nil, err
	}

	o.Text = in.Text
	o.Value = strings.TrimSpace(in.Value)
	o.Score = in.Score
	o.JobType = in.JobType
	o.IsCorrect = in.IsCorrect
	if err := s.store.UpdateOption(ctx, o); err != nil {
		return nil, fmt.Errorf("update option: %w", err)
	}
	return o, nil
}

func (s *Service) DeleteOption(ctx context.Context, optionID int64) error {
	o, err := s.store.FindOption(ctx, optionID)
	if err != nil {
		return err
	}
	q, err := s.store.FindQuestion(ctx, o.QuestionID)
	if err != nil {
		return err
	}
	if _, err := s.editableSet(ctx, q.SetID); err != nil {
		return err
	}
	if err := s.store.DeleteOption(ctx, optionID); err != nil {
		return fmt.Errorf("delete option: %w", err)
	}
	return nil
}

func (s *Service) ReorderOption(ctx context.Context, optionID int64, newOrder int) error {
	o, err := s.store.FindOption(ctx, optionID)
	if err != nil {
		return err
	}
	q, err := s.store.FindQuestion(ctx, o.QuestionID)
	if err != nil {
		return err
	}
	if _, err := s.editableSet(ctx, q.SetID); err != nil {
		return err
	}

	siblings, err := s.store.FindOptionsByQuestion(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("list options: %w", err)
	}
	sort.SliceStable(siblings, func(i, j int) bool { return siblings[i].Order < siblings[j].Order })

	moveIdx := -1
	for i := range siblings {
		if siblings[i].ID == optionID {
			moveIdx = i
			break
		}
	}
	if moveIdx < 0 {
		return ErrOptionNotFound
	}

	orders := renumbered(len(siblings), moveIdx, newOrder)
	assignment := make(map[int64]int, len(siblings))
	for i := range siblings {
		assignment[siblings[i].ID] = orders[i]
	}
	if err := s.store.UpdateOptionOrders(ctx, q.ID, assignment); err != nil {
		return fmt.Errorf("update option orders: %w", err)
	}
	return nil
}

func (s *Service) QuestionCountsByPart(ctx context.Context, setID int64) (map[Part]int, error) {
	if _, err := s.store.FindQuestionSet(ctx, setID); err != nil {
		return nil, err
	}
	counts, err := s.store.CountQuestionsByPart(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("count questions by part: %w", err)
	}
	return counts, nil
}

// PublishedQuestionSet returns the live set for a type with its questions.
// The absence of a published set is a content-operations gap, reported with
// its own sentinel so callers do not confuse it with a bad id.
func (s *Service) PublishedQuestionSet(ctx context.Context, t SetType) (*QuestionSet, error) {
	if _, ok := ParseSetType(string(t)); !ok {
		return nil, fmt.Errorf("%w: unknown set type %q", ErrInvalidInput, t)
	}
	return s.store.FindPublishedByTypeWithQuestions(ctx, t)
}

func (s *Service) editableSet(ctx context.Context, setID int64) (*QuestionSet, error) {
	set, err := s.store.FindQuestionSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if !set.Status.IsEditable() {
		return nil, fmt.Errorf("%w: set %d is %s", ErrNotEditable, setID, set.Status)
	}
	return set, nil
}

func (s *Service) checkFieldKeyFree(ctx context.Context, setID int64, fieldKey string, selfID int64) error {
	siblings, err := s.store.FindQuestionsBySet(ctx, setID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	for i := range siblings {
		if siblings[i].ID != selfID && siblings[i].FieldKey == fieldKey {
			return fmt.Errorf("%w: field_key %q already used in set %d", ErrInvalidInput, fieldKey, setID)
		}
	}
	return nil
}
