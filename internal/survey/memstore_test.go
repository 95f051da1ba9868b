package survey

import (
	"context"
	"sort"
	"sync"
	"time"
)

func sortQuestionsByOrder(items []Question) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].ID < items[j].ID
	})
}

func sortOptionsByOrder(items []Option) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Order != items[j].Order {
			return items[i].Order < items[j].Order
		}
		return items[i].ID < items[j].ID
	})
}

// memStore is an in-memory Store for service tests. All methods copy on the
// way in and out so tests observe persisted state, not shared pointers.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	sets    map[int64]*QuestionSet
	quests  map[int64]*Question
	options map[int64]*Option
}

func newMemStore() *memStore {
	return &memStore{
		sets:    make(map[int64]*QuestionSet),
		quests:  make(map[int64]*Question),
		options: make(map[int64]*Option),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func copySet(s *QuestionSet) *QuestionSet {
	out := *s
	out.Questions = nil
	if s.PublishedAt != nil {
		t := *s.PublishedAt
		out.PublishedAt = &t
	}
	return &out
}

func copyQuestion(q *Question) *Question {
	out := *q
	out.Options = nil
	return &out
}

func (m *memStore) CreateQuestionSet(ctx context.Context, set *QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set.ID = m.id()
	m.sets[set.ID] = copySet(set)
	return nil
}

func (m *memStore) UpdateQuestionSet(ctx context.Context, set *QuestionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[set.ID]; !ok {
		return ErrSetNotFound
	}
	m.sets[set.ID] = copySet(set)
	return nil
}

func (m *memStore) DeleteQuestionSet(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[id]; !ok {
		return ErrSetNotFound
	}
	for qid, q := range m.quests {
		if q.SetID == id {
			for oid, o := range m.options {
				if o.QuestionID == qid {
					delete(m.options, oid)
				}
			}
			delete(m.quests, qid)
		}
	}
	delete(m.sets, id)
	return nil
}

func (m *memStore) FindQuestionSet(ctx context.Context, id int64) (*QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return nil, ErrSetNotFound
	}
	return copySet(set), nil
}

func (m *memStore) FindQuestionSetWithQuestions(ctx context.Context, id int64) (*QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[id]
	if !ok {
		return nil, ErrSetNotFound
	}
	out := copySet(set)
	out.Questions = m.questionsBySetLocked(id)
	return out, nil
}

func (m *memStore) FindQuestionSetsByType(ctx context.Context, t SetType) ([]QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]QuestionSet, 0)
	for _, set := range m.sets {
		if set.Type == t {
			items = append(items, *copySet(set))
		}
	}
	return items, nil
}

func (m *memStore) FindAllQuestionSets(ctx context.Context) ([]QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]QuestionSet, 0, len(m.sets))
	for _, set := range m.sets {
		items = append(items, *copySet(set))
	}
	return items, nil
}

func (m *memStore) MaxVersionByType(ctx context.Context, t SetType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, set := range m.sets {
		if set.Type == t && set.Version > max {
			max = set.Version
		}
	}
	return max, nil
}

func (m *memStore) FindPublishedByType(ctx context.Context, t SetType) (*QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.sets {
		if set.Type == t && set.Status == StatusPublished {
			return copySet(set), nil
		}
	}
	return nil, ErrPublishedSetNotFound
}

func (m *memStore) FindPublishedByTypeWithQuestions(ctx context.Context, t SetType) (*QuestionSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.sets {
		if set.Type == t && set.Status == StatusPublished {
			out := copySet(set)
			out.Questions = m.questionsBySetLocked(set.ID)
			return out, nil
		}
	}
	return nil, ErrPublishedSetNotFound
}

func (m *memStore) ArchivePublishedByType(ctx context.Context, t SetType, excludeID int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.sets {
		if set.Type == t && set.Status == StatusPublished && set.ID != excludeID {
			set.Status = StatusArchived
			set.UpdatedAt = now
		}
	}
	return nil
}

func (m *memStore) CreateQuestion(ctx context.Context, q *Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.id()
	m.quests[q.ID] = copyQuestion(q)
	return nil
}

func (m *memStore) UpdateQuestion(ctx context.Context, q *Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.quests[q.ID]
	if !ok {
		return ErrQuestionNotFound
	}
	cp := copyQuestion(q)
	cp.Order = stored.Order
	m.quests[q.ID] = cp
	return nil
}

func (m *memStore) DeleteQuestion(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quests[id]; !ok {
		return ErrQuestionNotFound
	}
	for oid, o := range m.options {
		if o.QuestionID == id {
			delete(m.options, oid)
		}
	}
	delete(m.quests, id)
	return nil
}

func (m *memStore) FindQuestion(ctx context.Context, id int64) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quests[id]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (m *memStore) FindQuestionsBySet(ctx context.Context, setID int64) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.questionsBySetLocked(setID), nil
}

func (m *memStore) questionsBySetLocked(setID int64) []Question {
	items := make([]Question, 0)
	for _, q := range m.quests {
		if q.SetID == setID {
			cp := *copyQuestion(q)
			cp.Options = m.optionsByQuestionLocked(q.ID)
			items = append(items, cp)
		}
	}
	sortQuestionsByOrder(items)
	return items
}

func (m *memStore) MaxQuestionOrder(ctx context.Context, setID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, q := range m.quests {
		if q.SetID == setID && q.Order > max {
			max = q.Order
		}
	}
	return max, nil
}

func (m *memStore) UpdateQuestionOrders(ctx context.Context, setID int64, orders map[int64]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, order := range orders {
		if q, ok := m.quests[id]; ok && q.SetID == setID {
			q.Order = order
		}
	}
	return nil
}

func (m *memStore) CountQuestionsByPart(ctx context.Context, setID int64) (map[Part]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Part]int)
	for _, q := range m.quests {
		if q.SetID == setID {
			counts[q.Part]++
		}
	}
	return counts, nil
}

func (m *memStore) CreateOption(ctx context.Context, o *Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.id()
	cp := *o
	m.options[o.ID] = &cp
	return nil
}

func (m *memStore) UpdateOption(ctx context.Context, o *Option) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.options[o.ID]
	if !ok {
		return ErrOptionNotFound
	}
	cp := *o
	cp.Order = stored.Order
	m.options[o.ID] = &cp
	return nil
}

func (m *memStore) DeleteOption(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.options[id]; !ok {
		return ErrOptionNotFound
	}
	delete(m.options, id)
	return nil
}

func (m *memStore) FindOption(ctx context.Context, id int64) (*Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.options[id]
	if !ok {
		return nil, ErrOptionNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) FindOptionsByQuestion(ctx context.Context, questionID int64) ([]Option, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.optionsByQuestionLocked(questionID), nil
}

func (m *memStore) optionsByQuestionLocked(questionID int64) []Option {
	items := make([]Option, 0)
	for _, o := range m.options {
		if o.QuestionID == questionID {
			items = append(items, *o)
		}
	}
	sortOptionsByOrder(items)
	return items
}

func (m *memStore) MaxOptionOrder(ctx context.Context, questionID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, o := range m.options {
		if o.QuestionID == questionID && o.Order > max {
			max = o.Order
		}
	}
	return max, nil
}

func (m *memStore) UpdateOptionOrders(ctx context.Context, questionID int64, orders map[int64]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, order := range orders {
		if o, ok := m.options[id]; ok && o.QuestionID == questionID {
			o.Order = order
		}
	}
	return nil
}
