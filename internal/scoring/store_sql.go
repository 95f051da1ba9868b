package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"aptisurvey/internal/survey"
)

type SQLSubmissionStore struct {
	db *sql.DB
}

func NewSQLSubmissionStore(db *sql.DB) *SQLSubmissionStore {
	return &SQLSubmissionStore{db: db}
}

func (s *SQLSubmissionStore) SaveSubmission(ctx context.Context, sub *Submission) error {
	tallies, err := json.Marshal(sub.JobTypeTallies)
	if err != nil {
		return fmt.Errorf("marshal tallies: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO score_submissions (id, set_id, set_version, aptitude_score, grade, recommended_job, job_type_tallies, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sub.ID, sub.SetID, sub.SetVersion, sub.AptitudeScore, string(sub.Grade), sub.RecommendedJob, string(tallies), sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *SQLSubmissionStore) ListSubmissionsBySet(ctx context.Context, setID int64) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, set_id, set_version, aptitude_score, grade, recommended_job, job_type_tallies, created_at
		FROM score_submissions
		WHERE set_id = $1
		ORDER BY created_at DESC, id ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	items := make([]Submission, 0)
	for rows.Next() {
		var sub Submission
		var grade, talliesRaw string
		if err := rows.Scan(&sub.ID, &sub.SetID, &sub.SetVersion, &sub.AptitudeScore,
			&grade, &sub.RecommendedJob, &talliesRaw, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.Grade = Grade(grade)
		sub.JobTypeTallies = make(map[survey.JobType]int)
		if err := json.Unmarshal([]byte(talliesRaw), &sub.JobTypeTallies); err != nil {
			return nil, fmt.Errorf("unmarshal tallies: %w", err)
		}
		items = append(items, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return items, nil
}
