package survey

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"aptisurvey/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc adminService
}

type adminService interface {
	CreateQuestionSet(ctx context.Context, in CreateQuestionSetInput) (*QuestionSet, error)
	GetQuestionSet(ctx context.Context, id int64) (*QuestionSet, error)
	GetQuestionSetWithQuestions(ctx context.Context, id int64) (*QuestionSet, error)
	ListQuestionSetsByType(ctx context.Context, t SetType) ([]QuestionSet, error)
	ListQuestionSets(ctx context.Context) ([]QuestionSet, error)
	UpdateQuestionSet(ctx context.Context, id int64, name, description string) (*QuestionSet, error)
	DeleteQuestionSet(ctx context.Context, id int64) error
	PublishQuestionSet(ctx context.Context, id int64) (*QuestionSet, error)
	CloneQuestionSet(ctx context.Context, id int64, copyQuestions bool) (*QuestionSet, error)
	AddQuestion(ctx context.Context, in AddQuestionInput) (*Question, error)
	UpdateQuestion(ctx context.Context, in UpdateQuestionInput) (*Question, error)
	DeleteQuestion(ctx context.Context, questionID int64) error
	ReorderQuestion(ctx context.Context, questionID int64, newOrder int) error
	AddOption(ctx context.Context, in AddOptionInput) (*Option, error)
	UpdateOption(ctx context.Context, in UpdateOptionInput) (*Option, error)
	DeleteOption(ctx context.Context, optionID int64) error
	ReorderOption(ctx context.Context, optionID int64, newOrder int) error
	QuestionCountsByPart(ctx context.Context, setID int64) (map[Part]int, error)
	PublishedQuestionSet(ctx context.Context, t SetType) (*QuestionSet, error)
	ExportQuestionSetExcel(ctx context.Context, id int64) ([]byte, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type questionSetRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type cloneRequest struct {
	CopyQuestions bool `json:"copy_questions"`
}

type questionRequest struct {
	Text             string          `json:"text"`
	QuestionType     string          `json:"question_type"`
	IsRequired       bool            `json:"is_required"`
	FieldKey         string          `json:"field_key"`
	ParentQuestionID *int64          `json:"parent_question_id"`
	Part             string          `json:"part"`
	ShowCondition    json.RawMessage `json:"show_condition"`
	Metadata         json.RawMessage `json:"metadata"`
}

type optionRequest struct {
	Text      string `json:"text"`
	Value     string `json:"value"`
	Score     int    `json:"score"`
	JobType   string `json:"job_type"`
	IsCorrect bool   `json:"is_correct"`
}

type reorderRequest struct {
	NewOrder int `json:"new_order"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateQuestionSet(w http.ResponseWriter, r *http.Request) {
	var req questionSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	t, ok := ParseSetType(req.Type)
	if !ok {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "type must be BASIC or APTITUDE"})
		return
	}
	set, err := h.svc.CreateQuestionSet(r.Context(), CreateQuestionSetInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        t,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: set})
}

func (h *Handler) ListQuestionSets(w http.ResponseWriter, r *http.Request) {
	typeRaw := r.URL.Query().Get("type")
	if typeRaw != "" {
		t, ok := ParseSetType(typeRaw)
		if !ok {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "type must be BASIC or APTITUDE"})
			return
		}
		items, err := h.svc.ListQuestionSetsByType(r.Context(), t)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
		return
	}
	items, err := h.svc.ListQuestionSets(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) GetQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	withQuestions := r.URL.Query().Get("with_questions") == "1"

	var (
		set *QuestionSet
		err error
	)
	if withQuestions {
		set, err = h.svc.GetQuestionSetWithQuestions(r.Context(), id)
	} else {
		set, err = h.svc.GetQuestionSet(r.Context(), id)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: set})
}

func (h *Handler) UpdateQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req questionSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	set, err := h.svc.UpdateQuestionSet(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: set})
}

func (h *Handler) DeleteQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteQuestionSet(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true})
}

func (h *Handler) PublishQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	set, err := h.svc.PublishQuestionSet(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: set})
}

func (h *Handler) CloneQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	// An empty body is a valid "empty clone" request.
	var req cloneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	clone, err := h.svc.CloneQuestionSet(r.Context(), id, req.CopyQuestions)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: clone})
}

func (h *Handler) QuestionCountsByPart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	counts, err := h.svc.QuestionCountsByPart(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: counts})
}

func (h *Handler) ExportQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	data, err := h.svc.ExportQuestionSetExcel(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="question_set.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	setID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	q, err := h.svc.AddQuestion(r.Context(), AddQuestionInput{
		SetID:            setID,
		Text:             req.Text,
		QuestionType:     QuestionType(req.QuestionType),
		IsRequired:       req.IsRequired,
		FieldKey:         req.FieldKey,
		ParentQuestionID: req.ParentQuestionID,
		Part:             Part(req.Part),
		ShowCondition:    req.ShowCondition,
		Metadata:         req.Metadata,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: q})
}

func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	q, err := h.svc.UpdateQuestion(r.Context(), UpdateQuestionInput{
		QuestionID:       questionID,
		Text:             req.Text,
		QuestionType:     QuestionType(req.QuestionType),
		IsRequired:       req.IsRequired,
		FieldKey:         req.FieldKey,
		ParentQuestionID: req.ParentQuestionID,
		Part:             Part(req.Part),
		ShowCondition:    req.ShowCondition,
		Metadata:         req.Metadata,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: q})
}

func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	if err := h.svc.DeleteQuestion(r.Context(), questionID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true})
}

func (h *Handler) ReorderQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	if req.NewOrder < 1 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "new_order must be positive"})
		return
	}
	if err := h.svc.ReorderQuestion(r.Context(), questionID, req.NewOrder); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true})
}

func (h *Handler) AddOption(w http.ResponseWriter, r *http.Request) {
	questionID, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	o, err := h.svc.AddOption(r.Context(), AddOptionInput{
		QuestionID: questionID,
		Text:       req.Text,
		Value:      req.Value,
		Score:      req.Score,
		JobType:    JobType(req.JobType),
		IsCorrect:  req.IsCorrect,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: o})
}

func (h *Handler) UpdateOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathID(w, r, "optionID")
	if !ok {
		return
	}
	var req optionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	o, err := h.svc.UpdateOption(r.Context(), UpdateOptionInput{
		OptionID:  optionID,
		Text:      req.Text,
		Value:     req.Value,
		Score:     req.Score,
		JobType:   JobType(req.JobType),
		IsCorrect: req.IsCorrect,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: o})
}

func (h *Handler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathID(w, r, "optionID")
	if !ok {
		return
	}
	if err := h.svc.DeleteOption(r.Context(), optionID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true})
}

func (h *Handler) ReorderOption(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathID(w, r, "optionID")
	if !ok {
		return
	}
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	if req.NewOrder < 1 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "new_order must be positive"})
		return
	}
	if err := h.svc.ReorderOption(r.Context(), optionID, req.NewOrder); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true})
}

// PublishedSurvey serves the live set for respondents with answer data
// stripped: respondents never see isCorrect, score or jobType.
func (h *Handler) PublishedSurvey(w http.ResponseWriter, r *http.Request) {
	t, ok := ParseSetType(chi.URLParam(r, "type"))
	if !ok {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "type must be BASIC or APTITUDE"})
		return
	}
	set, err := h.svc.PublishedQuestionSet(r.Context(), t)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: respondentView(set)})
}

type respondentOption struct {
	Order int    `json:"option_order"`
	Text  string `json:"text"`
	Value string `json:"value,omitempty"`
}

type respondentQuestion struct {
	Order            int                `json:"question_order"`
	Text             string             `json:"text"`
	QuestionType     QuestionType       `json:"question_type"`
	IsRequired       bool               `json:"is_required"`
	FieldKey         string             `json:"field_key"`
	ParentQuestionID *int64             `json:"parent_question_id,omitempty"`
	Part             Part               `json:"part,omitempty"`
	ShowCondition    json.RawMessage    `json:"show_condition,omitempty"`
	Options          []respondentOption `json:"options"`
}

type respondentSet struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Type        SetType              `json:"type"`
	Version     int                  `json:"version"`
	Questions   []respondentQuestion `json:"questions"`
}

func respondentView(set *QuestionSet) respondentSet {
	out := respondentSet{
		Name:        set.Name,
		Description: set.Description,
		Type:        set.Type,
		Version:     set.Version,
		Questions:   make([]respondentQuestion, 0, len(set.Questions)),
	}
	for _, q := range set.Questions {
		rq := respondentQuestion{
			Order:            q.Order,
			Text:             q.Text,
			QuestionType:     q.QuestionType,
			IsRequired:       q.IsRequired,
			FieldKey:         q.FieldKey,
			ParentQuestionID: q.ParentQuestionID,
			Part:             q.Part,
			ShowCondition:    q.ShowCondition,
			Options:          make([]respondentOption, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			rq.Options = append(rq.Options, respondentOption{
				Order: o.Order,
				Text:  o.Text,
				Value: o.Value,
			})
		}
		out.Questions = append(out.Questions, rq)
	}
	return out
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrSetNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrOptionNotFound),
		errors.Is(err, ErrPublishedSetNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrNotEditable), errors.Is(err, ErrInvalidTransition):
		writeJSON(w, r, http.StatusConflict, apiResponse{OK: false, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: name + " must be a positive integer"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
