package survey

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ExportQuestionSetExcel renders a set's questions and options as an xlsx
// workbook for content review outside the admin UI.
func (s *Service) ExportQuestionSetExcel(ctx context.Context, id int64) ([]byte, error) {
	set, err := s.store.FindQuestionSetWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	headers := []string{
		"question_order", "field_key", "part", "question_type", "is_required", "text",
		"option_order", "option_text", "option_value", "score", "job_type", "is_correct",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, q := range set.Questions {
		base := []any{q.Order, q.FieldKey, string(q.Part), string(q.QuestionType), q.IsRequired, q.Text}
		if len(q.Options) == 0 {
			writeRow(f, sheet, row, base)
			row++
			continue
		}
		for _, o := range q.Options {
			values := append(append([]any{}, base...),
				o.Order, o.Text, o.Value, o.Score, string(o.JobType), o.IsCorrect)
			writeRow(f, sheet, row, values)
			row++
		}
	}

	title := set.Name + " v" + strconv.Itoa(set.Version)
	_ = f.SetSheetName(sheet, sanitizeSheetName(title))

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

// Excel sheet names cap at 31 chars and reject a handful of characters.
func sanitizeSheetName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			out = append(out, ' ')
		default:
			out = append(out, r)
		}
		if len(out) >= 31 {
			break
		}
	}
	if len(out) == 0 {
		return "QuestionSet"
	}
	return string(out)
}
