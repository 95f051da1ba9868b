package survey

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type mockAdminService struct {
	createSetFn     func(ctx context.Context, in CreateQuestionSetInput) (*QuestionSet, error)
	getSetFn        func(ctx context.Context, id int64) (*QuestionSet, error)
	getSetFullFn    func(ctx context.Context, id int64) (*QuestionSet, error)
	listByTypeFn    func(ctx context.Context, t SetType) ([]QuestionSet, error)
	listAllFn       func(ctx context.Context) ([]QuestionSet, error)
	updateSetFn     func(ctx context.Context, id int64, name, description string) (*QuestionSet, error)
	deleteSetFn     func(ctx context.Context, id int64) error
	publishFn       func(ctx context.Context, id int64) (*QuestionSet, error)
	cloneFn         func(ctx context.Context, id int64, copyQuestions bool) (*QuestionSet, error)
	addQuestionFn   func(ctx context.Context, in AddQuestionInput) (*Question, error)
	updateQFn       func(ctx context.Context, in UpdateQuestionInput) (*Question, error)
	deleteQFn       func(ctx context.Context, questionID int64) error
	reorderQFn      func(ctx context.Context, questionID int64, newOrder int) error
	addOptionFn     func(ctx context.Context, in AddOptionInput) (*Option, error)
	updateOptionFn  func(ctx context.Context, in UpdateOptionInput) (*Option, error)
	deleteOptionFn  func(ctx context.Context, optionID int64) error
	reorderOptionFn func(ctx context.Context, optionID int64, newOrder int) error
	countsFn        func(ctx context.Context, setID int64) (map[Part]int, error)
	publishedFn     func(ctx context.Context, t SetType) (*QuestionSet, error)
	exportFn        func(ctx context.Context, id int64) ([]byte, error)
}

func (m *mockAdminService) CreateQuestionSet(ctx context.Context, in CreateQuestionSetInput) (*QuestionSet, error) {
	if m.createSetFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.createSetFn(ctx, in)
}

func (m *mockAdminService) GetQuestionSet(ctx context.Context, id int64) (*QuestionSet, error) {
	if m.getSetFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getSetFn(ctx, id)
}

func (m *mockAdminService) GetQuestionSetWithQuestions(ctx context.Context, id int64) (*QuestionSet, error) {
	if m.getSetFullFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.getSetFullFn(ctx, id)
}

func (m *mockAdminService) ListQuestionSetsByType(ctx context.Context, t SetType) ([]QuestionSet, error) {
	if m.listByTypeFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listByTypeFn(ctx, t)
}

func (m *mockAdminService) ListQuestionSets(ctx context.Context) ([]QuestionSet, error) {
	if m.listAllFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.listAllFn(ctx)
}

func (m *mockAdminService) UpdateQuestionSet(ctx context.Context, id int64, name, description string) (*QuestionSet, error) {
	if m.updateSetFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateSetFn(ctx, id, name, description)
}

func (m *mockAdminService) DeleteQuestionSet(ctx context.Context, id int64) error {
	if m.deleteSetFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteSetFn(ctx, id)
}

func (m *mockAdminService) PublishQuestionSet(ctx context.Context, id int64) (*QuestionSet, error) {
	if m.publishFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.publishFn(ctx, id)
}

func (m *mockAdminService) CloneQuestionSet(ctx context.Context, id int64, copyQuestions bool) (*QuestionSet, error) {
	if m.cloneFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.cloneFn(ctx, id, copyQuestions)
}

func (m *mockAdminService) AddQuestion(ctx context.Context, in AddQuestionInput) (*Question, error) {
	if m.addQuestionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.addQuestionFn(ctx, in)
}

func (m *mockAdminService) UpdateQuestion(ctx context.Context, in UpdateQuestionInput) (*Question, error) {
	if m.updateQFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateQFn(ctx, in)
}

func (m *mockAdminService) DeleteQuestion(ctx context.Context, questionID int64) error {
	if m.deleteQFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteQFn(ctx, questionID)
}

func (m *mockAdminService) ReorderQuestion(ctx context.Context, questionID int64, newOrder int) error {
	if m.reorderQFn == nil {
		return errors.New("not implemented")
	}
	return m.reorderQFn(ctx, questionID, newOrder)
}

func (m *mockAdminService) AddOption(ctx context.Context, in AddOptionInput) (*Option, error) {
	if m.addOptionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.addOptionFn(ctx, in)
}

func (m *mockAdminService) UpdateOption(ctx context.Context, in UpdateOptionInput) (*Option, error) {
	if m.updateOptionFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.updateOptionFn(ctx, in)
}

func (m *mockAdminService) DeleteOption(ctx context.Context, optionID int64) error {
	if m.deleteOptionFn == nil {
		return errors.New("not implemented")
	}
	return m.deleteOptionFn(ctx, optionID)
}

func (m *mockAdminService) ReorderOption(ctx context.Context, optionID int64, newOrder int) error {
	if m.reorderOptionFn == nil {
		return errors.New("not implemented")
	}
	return m.reorderOptionFn(ctx, optionID, newOrder)
}

func (m *mockAdminService) QuestionCountsByPart(ctx context.Context, setID int64) (map[Part]int, error) {
	if m.countsFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.countsFn(ctx, setID)
}

func (m *mockAdminService) PublishedQuestionSet(ctx context.Context, t SetType) (*QuestionSet, error) {
	if m.publishedFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.publishedFn(ctx, t)
}

func (m *mockAdminService) ExportQuestionSetExcel(ctx context.Context, id int64) ([]byte, error) {
	if m.exportFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.exportFn(ctx, id)
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateQuestionSetHandlerOK(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		createSetFn: func(ctx context.Context, in CreateQuestionSetInput) (*QuestionSet, error) {
			if in.Name != "Aptitude" || in.Type != SetTypeAptitude {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &QuestionSet{ID: 1, Name: in.Name, Type: in.Type, Version: 1, Status: StatusDraft}, nil
		},
	}}

	payload := []byte(`{"name":"Aptitude","type":"APTITUDE"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/question-sets", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.CreateQuestionSet(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	body := decodeMap(t, w)
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body)
	}
}

func TestCreateQuestionSetHandlerBadType(t *testing.T) {
	h := &Handler{svc: &mockAdminService{}}

	payload := []byte(`{"name":"Aptitude","type":"WEIRD"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/question-sets", bytes.NewReader(payload))
	w := httptest.NewRecorder()

	h.CreateQuestionSet(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPublishQuestionSetHandlerConflict(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		publishFn: func(ctx context.Context, id int64) (*QuestionSet, error) {
			return nil, ErrInvalidTransition
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/question-sets/4/publish", nil)
	req = withParam(req, "id", "4")
	w := httptest.NewRecorder()

	h.PublishQuestionSet(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestDeleteQuestionSetHandlerNotEditable(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		deleteSetFn: func(ctx context.Context, id int64) error {
			return ErrNotEditable
		},
	}}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/question-sets/4", nil)
	req = withParam(req, "id", "4")
	w := httptest.NewRecorder()

	h.DeleteQuestionSet(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestCloneQuestionSetHandlerPassesCopyFlag(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		cloneFn: func(ctx context.Context, id int64, copyQuestions bool) (*QuestionSet, error) {
			if id != 4 || !copyQuestions {
				t.Fatalf("unexpected input: id=%d copy=%v", id, copyQuestions)
			}
			return &QuestionSet{ID: 9, Version: 2, Status: StatusDraft}, nil
		},
	}}

	payload := []byte(`{"copy_questions":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/question-sets/4/clone", bytes.NewReader(payload))
	req = withParam(req, "id", "4")
	w := httptest.NewRecorder()

	h.CloneQuestionSet(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestCloneQuestionSetHandlerUnknownContentLength(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		cloneFn: func(ctx context.Context, id int64, copyQuestions bool) (*QuestionSet, error) {
			if !copyQuestions {
				t.Fatalf("copy_questions lost when content length is unknown")
			}
			return &QuestionSet{ID: 9, Version: 2, Status: StatusDraft}, nil
		},
	}}

	// io.MultiReader hides the length, as a chunked request would.
	payload := []byte(`{"copy_questions":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/question-sets/4/clone", io.MultiReader(bytes.NewReader(payload)))
	req = withParam(req, "id", "4")
	if req.ContentLength != -1 {
		t.Fatalf("expected unknown content length, got %d", req.ContentLength)
	}
	w := httptest.NewRecorder()

	h.CloneQuestionSet(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestCloneQuestionSetHandlerEmptyBody(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		cloneFn: func(ctx context.Context, id int64, copyQuestions bool) (*QuestionSet, error) {
			if copyQuestions {
				t.Fatalf("expected copy_questions to default to false")
			}
			return &QuestionSet{ID: 9, Version: 2, Status: StatusDraft}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/question-sets/4/clone", nil)
	req = withParam(req, "id", "4")
	w := httptest.NewRecorder()

	h.CloneQuestionSet(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
}

func TestAddQuestionHandlerNotFound(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		addQuestionFn: func(ctx context.Context, in AddQuestionInput) (*Question, error) {
			return nil, ErrSetNotFound
		},
	}}

	payload := []byte(`{"text":"What?","question_type":"RADIO","field_key":"q1","part":"PART1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/question-sets/99/questions", bytes.NewReader(payload))
	req = withParam(req, "id", "99")
	w := httptest.NewRecorder()

	h.AddQuestion(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestReorderQuestionHandlerRejectsZero(t *testing.T) {
	h := &Handler{svc: &mockAdminService{}}

	payload := []byte(`{"new_order":0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/questions/5/reorder", bytes.NewReader(payload))
	req = withParam(req, "questionID", "5")
	w := httptest.NewRecorder()

	h.ReorderQuestion(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPathIDRejectsGarbage(t *testing.T) {
	h := &Handler{svc: &mockAdminService{}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/question-sets/abc", nil)
	req = withParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.GetQuestionSet(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPublishedSurveyStripsAnswerData(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		publishedFn: func(ctx context.Context, st SetType) (*QuestionSet, error) {
			if st != SetTypeAptitude {
				t.Fatalf("unexpected type: %s", st)
			}
			return &QuestionSet{
				ID: 1, Name: "Aptitude", Type: SetTypeAptitude, Version: 2, Status: StatusPublished,
				Questions: []Question{{
					ID: 10, Order: 1, Text: "Pick one", QuestionType: QTypeRadio, FieldKey: "q1", Part: Part1,
					Options: []Option{
						{ID: 100, Order: 1, Text: "A", Score: 5, JobType: JobTypeFrontend, IsCorrect: true},
						{ID: 101, Order: 2, Text: "B"},
					},
				}},
			}, nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/surveys/APTITUDE", nil)
	req = withParam(req, "type", "APTITUDE")
	w := httptest.NewRecorder()

	h.PublishedSurvey(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	raw := w.Body.String()
	for _, leak := range []string{"is_correct", "score", "job_type"} {
		if bytes.Contains([]byte(raw), []byte(leak)) {
			t.Fatalf("respondent payload leaks %q: %s", leak, raw)
		}
	}
}

func TestPublishedSurveyNoLiveSet(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		publishedFn: func(ctx context.Context, st SetType) (*QuestionSet, error) {
			return nil, ErrPublishedSetNotFound
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/surveys/BASIC", nil)
	req = withParam(req, "type", "BASIC")
	w := httptest.NewRecorder()

	h.PublishedSurvey(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestExportQuestionSetHandlerOK(t *testing.T) {
	h := &Handler{svc: &mockAdminService{
		exportFn: func(ctx context.Context, id int64) ([]byte, error) {
			return []byte("PK"), nil
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/question-sets/4/export", nil)
	req = withParam(req, "id", "4")
	w := httptest.NewRecorder()

	h.ExportQuestionSet(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type: %s", ct)
	}
}
