package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"aptisurvey/internal/app/apiresp"
	"aptisurvey/internal/survey"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc scoringService
}

type scoringService interface {
	SubmitResponse(ctx context.Context, t survey.SetType, resp Response) (*Scored, error)
	ListSubmissions(ctx context.Context, setID int64) ([]Submission, error)
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type submitRequest struct {
	Part1 map[string]int    `json:"part1"`
	Part2 map[string]int    `json:"part2"`
	Part3 map[string]string `json:"part3"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	t, ok := survey.ParseSetType(chi.URLParam(r, "type"))
	if !ok {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "type must be BASIC or APTITUDE"})
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	scored, err := h.svc.SubmitResponse(r.Context(), t, Response{
		Part1: req.Part1,
		Part2: req.Part2,
		Part3: req.Part3,
	})
	if err != nil {
		switch {
		case errors.Is(err, survey.ErrInvalidInput):
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
		case errors.Is(err, survey.ErrPublishedSetNotFound):
			writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: scored})
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	setIDRaw := strings.TrimSpace(r.URL.Query().Get("set_id"))
	setID, err := strconv.ParseInt(setIDRaw, 10, 64)
	if err != nil || setID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "set_id is required and must be positive"})
		return
	}
	items, err := h.svc.ListSubmissions(r.Context(), setID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
