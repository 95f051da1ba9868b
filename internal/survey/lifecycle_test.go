package survey

import (
	"errors"
	"testing"
	"time"
)

func TestPublishTransitions(t *testing.T) {
	set := NewQuestionSet("Aptitude", "v1", SetTypeAptitude)
	now := time.Now()

	if err := set.Publish(now); err != nil {
		t.Fatalf("publish from DRAFT: %v", err)
	}
	if set.Status != StatusPublished {
		t.Fatalf("expected PUBLISHED, got %s", set.Status)
	}
	if set.PublishedAt == nil {
		t.Fatalf("expected publishedAt to be set")
	}

	if err := set.Publish(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second publish, got %v", err)
	}
}

func TestArchiveTransitions(t *testing.T) {
	set := NewQuestionSet("Aptitude", "v1", SetTypeAptitude)

	if err := set.Archive(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition archiving a DRAFT, got %v", err)
	}

	if err := set.Publish(time.Now()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := set.Archive(); err != nil {
		t.Fatalf("archive from PUBLISHED: %v", err)
	}
	if set.Status != StatusArchived {
		t.Fatalf("expected ARCHIVED, got %s", set.Status)
	}
	if err := set.Archive(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second archive, got %v", err)
	}
}

func TestUpdateInfoGuard(t *testing.T) {
	set := NewQuestionSet("Aptitude", "v1", SetTypeAptitude)
	if err := set.UpdateInfo("Renamed", "desc"); err != nil {
		t.Fatalf("update on DRAFT: %v", err)
	}
	if set.Name != "Renamed" {
		t.Fatalf("expected rename to apply")
	}

	if err := set.Publish(time.Now()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := set.UpdateInfo("Again", "x"); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable on published set, got %v", err)
	}
	if set.Name != "Renamed" {
		t.Fatalf("rejected update must leave the set unchanged")
	}
}

func TestCloneForNewVersionEmpty(t *testing.T) {
	src := NewQuestionSet("Aptitude", "v1", SetTypeAptitude)
	src.ID = 7
	src.Questions = []Question{{ID: 1, Text: "Q1", Options: []Option{{ID: 2, Text: "A"}}}}
	if err := src.Publish(time.Now()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	clone := src.CloneForNewVersion(4, false)
	if clone.Status != StatusDraft {
		t.Fatalf("clone must start as DRAFT, got %s", clone.Status)
	}
	if clone.Version != 4 {
		t.Fatalf("expected version 4, got %d", clone.Version)
	}
	if clone.ID != 0 || clone.PublishedAt != nil {
		t.Fatalf("clone must be a fresh unpersisted set")
	}
	if len(clone.Questions) != 0 {
		t.Fatalf("default clone must have no questions, got %d", len(clone.Questions))
	}
	if clone.Name != src.Name || clone.Type != src.Type {
		t.Fatalf("clone must keep name and type")
	}
}

func TestCloneForNewVersionDeepCopy(t *testing.T) {
	src := NewQuestionSet("Aptitude", "v1", SetTypeAptitude)
	src.Questions = []Question{
		{ID: 1, SetID: 9, Order: 1, Text: "Q1", FieldKey: "q1", Options: []Option{
			{ID: 5, QuestionID: 1, Order: 1, Text: "A", IsCorrect: true},
			{ID: 6, QuestionID: 1, Order: 2, Text: "B"},
		}},
	}

	clone := src.CloneForNewVersion(2, true)
	if len(clone.Questions) != 1 || len(clone.Questions[0].Options) != 2 {
		t.Fatalf("expected full content copy")
	}
	q := clone.Questions[0]
	if q.ID != 0 || q.SetID != 0 {
		t.Fatalf("copied question identity must be cleared")
	}
	if q.Options[0].ID != 0 || q.Options[0].QuestionID != 0 {
		t.Fatalf("copied option identity must be cleared")
	}
	if !q.Options[0].IsCorrect || q.Options[1].IsCorrect {
		t.Fatalf("option payload must be preserved")
	}

	clone.Questions[0].Text = "changed"
	if src.Questions[0].Text != "Q1" {
		t.Fatalf("deep copy must not alias the source")
	}
}

func TestRenumbered(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		moveIdx int
		target  int
		want    []int
	}{
		{name: "move first to last", n: 4, moveIdx: 0, target: 4, want: []int{4, 1, 2, 3}},
		{name: "move last to first", n: 4, moveIdx: 3, target: 1, want: []int{2, 3, 4, 1}},
		{name: "move middle forward", n: 5, moveIdx: 1, target: 4, want: []int{1, 4, 2, 3, 5}},
		{name: "target clamped high", n: 3, moveIdx: 0, target: 99, want: []int{3, 1, 2}},
		{name: "target clamped low", n: 3, moveIdx: 2, target: 0, want: []int{2, 3, 1}},
		{name: "noop", n: 3, moveIdx: 1, target: 2, want: []int{1, 2, 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := renumbered(tc.n, tc.moveIdx, tc.target)
			if len(got) != len(tc.want) {
				t.Fatalf("length mismatch: got %v want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v want %v", got, tc.want)
				}
			}
		})
	}
}

func TestJobTypeRecommendations(t *testing.T) {
	if got := JobTypeFrontend.RecommendedJob(); got != "Frontend Developer" {
		t.Fatalf("unexpected mapping for F: %s", got)
	}
	if got := JobTypeBackend.RecommendedJob(); got != "Backend Developer" {
		t.Fatalf("unexpected mapping for B: %s", got)
	}
	if got := JobTypeData.RecommendedJob(); got != "Data Engineer" {
		t.Fatalf("unexpected mapping for D: %s", got)
	}
	if _, ok := ParseJobType("x"); ok {
		t.Fatalf("unknown code must not parse")
	}
	if code, ok := ParseJobType(" f "); !ok || code != JobTypeFrontend {
		t.Fatalf("parse should trim and uppercase")
	}
}

func TestStatusEditability(t *testing.T) {
	if !StatusDraft.IsEditable() {
		t.Fatalf("DRAFT must be editable")
	}
	if StatusPublished.IsEditable() || StatusArchived.IsEditable() {
		t.Fatalf("only DRAFT is editable")
	}
}
