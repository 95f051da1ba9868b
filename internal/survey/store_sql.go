package survey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLStore persists question sets in Postgres or SQLite. Queries stick to the
// $N placeholder form both drivers accept.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const setColumns = `id, name, description, set_type, version, status, published_at, created_at, updated_at`

func (s *SQLStore) CreateQuestionSet(ctx context.Context, set *QuestionSet) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO question_sets (name, description, set_type, version, status, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, set.Name, set.Description, string(set.Type), set.Version, string(set.Status), set.PublishedAt, set.CreatedAt, set.UpdatedAt)
	if err := row.Scan(&set.ID); err != nil {
		return fmt.Errorf("insert question set: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateQuestionSet(ctx context.Context, set *QuestionSet) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE question_sets
		SET name = $1, description = $2, status = $3, published_at = $4, updated_at = $5
		WHERE id = $6
	`, set.Name, set.Description, string(set.Status), set.PublishedAt, set.UpdatedAt, set.ID)
	if err != nil {
		return fmt.Errorf("update question set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSetNotFound
	}
	return nil
}

func (s *SQLStore) DeleteQuestionSet(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM question_options
		WHERE question_id IN (SELECT id FROM questions WHERE set_id = $1)
	`, id); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE set_id = $1`, id); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM question_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSetNotFound
	}
	return tx.Commit()
}

func (s *SQLStore) FindQuestionSet(ctx context.Context, id int64) (*QuestionSet, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+setColumns+` FROM question_sets WHERE id = $1`, id)
	return scanSet(row, ErrSetNotFound)
}

func (s *SQLStore) FindQuestionSetWithQuestions(ctx context.Context, id int64) (*QuestionSet, error) {
	set, err := s.FindQuestionSet(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachQuestions(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *SQLStore) FindQuestionSetsByType(ctx context.Context, t SetType) ([]QuestionSet, error) {
	return s.querySets(ctx, `
		SELECT `+setColumns+` FROM question_sets
		WHERE set_type = $1
		ORDER BY version DESC
	`, string(t))
}

func (s *SQLStore) FindAllQuestionSets(ctx context.Context) ([]QuestionSet, error) {
	return s.querySets(ctx, `
		SELECT `+setColumns+` FROM question_sets
		ORDER BY set_type ASC, version DESC
	`)
}

func (s *SQLStore) MaxVersionByType(ctx context.Context, t SetType) (int, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
		SELECT MAX(version) FROM question_sets WHERE set_type = $1
	`, string(t)).Scan(&max); err != nil {
		return 0, fmt.Errorf("max version: %w", err)
	}
	return int(max.Int64), nil
}

func (s *SQLStore) FindPublishedByType(ctx context.Context, t SetType) (*QuestionSet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+setColumns+` FROM question_sets
		WHERE set_type = $1 AND status = $2
	`, string(t), string(StatusPublished))
	return scanSet(row, ErrPublishedSetNotFound)
}

func (s *SQLStore) FindPublishedByTypeWithQuestions(ctx context.Context, t SetType) (*QuestionSet, error) {
	set, err := s.FindPublishedByType(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := s.attachQuestions(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *SQLStore) ArchivePublishedByType(ctx context.Context, t SetType, excludeID int64, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE question_sets
		SET status = $1, updated_at = $2
		WHERE set_type = $3 AND status = $4 AND id <> $5
	`, string(StatusArchived), now, string(t), string(StatusPublished), excludeID)
	if err != nil {
		return fmt.Errorf("archive published sets: %w", err)
	}
	return nil
}

const questionColumns = `id, set_id, question_order, text, question_type, is_required, field_key, parent_question_id, part, show_condition, metadata`

func (s *SQLStore) CreateQuestion(ctx context.Context, q *Question) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO questions (set_id, question_order, text, question_type, is_required, field_key, parent_question_id, part, show_condition, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, q.SetID, q.Order, q.Text, string(q.QuestionType), q.IsRequired, q.FieldKey,
		q.ParentQuestionID, string(q.Part), nullableJSON(q.ShowCondition), nullableJSON(q.Metadata))
	if err := row.Scan(&q.ID); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q *Question) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE questions
		SET text = $1, question_type = $2, is_required = $3, field_key = $4,
			parent_question_id = $5, part = $6, show_condition = $7, metadata = $8
		WHERE id = $9
	`, q.Text, string(q.QuestionType), q.IsRequired, q.FieldKey,
		q.ParentQuestionID, string(q.Part), nullableJSON(q.ShowCondition), nullableJSON(q.Metadata), q.ID)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM question_options WHERE question_id = $1`, id); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return tx.Commit()
}

func (s *SQLStore) FindQuestion(ctx context.Context, id int64) (*Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	return q, nil
}

func (s *SQLStore) FindQuestionsBySet(ctx context.Context, setID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+questionColumns+` FROM questions
		WHERE set_id = $1
		ORDER BY question_order ASC, id ASC
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	items := make([]Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return items, nil
}

func (s *SQLStore) MaxQuestionOrder(ctx context.Context, setID int64) (int, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
		SELECT MAX(question_order) FROM questions WHERE set_id = $1
	`, setID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max question order: %w", err)
	}
	return int(max.Int64), nil
}

func (s *SQLStore) UpdateQuestionOrders(ctx context.Context, setID int64, orders map[int64]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for id, order := range orders {
		if _, err := tx.ExecContext(ctx, `
			UPDATE questions SET question_order = $1 WHERE id = $2 AND set_id = $3
		`, order, id, setID); err != nil {
			return fmt.Errorf("update question order: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) CountQuestionsByPart(ctx context.Context, setID int64) (map[Part]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT part, COUNT(*) FROM questions
		WHERE set_id = $1
		GROUP BY part
	`, setID)
	if err != nil {
		return nil, fmt.Errorf("count by part: %w", err)
	}
	defer rows.Close()

	counts := make(map[Part]int)
	for rows.Next() {
		var part string
		var n int
		if err := rows.Scan(&part, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Part(part)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

const optionColumns = `id, question_id, option_order, text, option_value, score, job_type, is_correct`

func (s *SQLStore) CreateOption(ctx context.Context, o *Option) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO question_options (question_id, option_order, text, option_value, score, job_type, is_correct)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, o.QuestionID, o.Order, o.Text, o.Value, o.Score, string(o.JobType), o.IsCorrect)
	if err := row.Scan(&o.ID); err != nil {
		return fmt.Errorf("insert option: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateOption(ctx context.Context, o *Option) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE question_options
		SET text = $1, option_value = $2, score = $3, job_type = $4, is_correct = $5
		WHERE id = $6
	`, o.Text, o.Value, o.Score, string(o.JobType), o.IsCorrect, o.ID)
	if err != nil {
		return fmt.Errorf("update option: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOptionNotFound
	}
	return nil
}

func (s *SQLStore) DeleteOption(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM question_options WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete option: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOptionNotFound
	}
	return nil
}

func (s *SQLStore) FindOption(ctx context.Context, id int64) (*Option, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+optionColumns+` FROM question_options WHERE id = $1`, id)
	o, err := scanOption(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOptionNotFound
		}
		return nil, fmt.Errorf("find option: %w", err)
	}
	return o, nil
}

func (s *SQLStore) FindOptionsByQuestion(ctx context.Context, questionID int64) ([]Option, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+optionColumns+` FROM question_options
		WHERE question_id = $1
		ORDER BY option_order ASC, id ASC
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	items := make([]Option, 0)
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		items = append(items, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return items, nil
}

func (s *SQLStore) MaxOptionOrder(ctx context.Context, questionID int64) (int, error) {
	var max sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
		SELECT MAX(option_order) FROM question_options WHERE question_id = $1
	`, questionID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max option order: %w", err)
	}
	return int(max.Int64), nil
}

func (s *SQLStore) UpdateOptionOrders(ctx context.Context, questionID int64, orders map[int64]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for id, order := range orders {
		if _, err := tx.ExecContext(ctx, `
			UPDATE question_options SET option_order = $1 WHERE id = $2 AND question_id = $3
		`, order, id, questionID); err != nil {
			return fmt.Errorf("update option order: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) attachQuestions(ctx context.Context, set *QuestionSet) error {
	questions, err := s.FindQuestionsBySet(ctx, set.ID)
	if err != nil {
		return err
	}
	for i := range questions {
		options, err := s.FindOptionsByQuestion(ctx, questions[i].ID)
		if err != nil {
			return err
		}
		questions[i].Options = options
	}
	set.Questions = questions
	return nil
}

func (s *SQLStore) querySets(ctx context.Context, query string, args ...any) ([]QuestionSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query question sets: %w", err)
	}
	defer rows.Close()

	items := make([]QuestionSet, 0)
	for rows.Next() {
		set, err := scanSetRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question set: %w", err)
		}
		items = append(items, *set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question sets: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSet(row *sql.Row, notFound error) (*QuestionSet, error) {
	set, err := scanSetRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find question set: %w", err)
	}
	return set, nil
}

func scanSetRow(r rowScanner) (*QuestionSet, error) {
	var set QuestionSet
	var setType, status string
	var publishedAt sql.NullTime
	if err := r.Scan(&set.ID, &set.Name, &set.Description, &setType, &set.Version,
		&status, &publishedAt, &set.CreatedAt, &set.UpdatedAt); err != nil {
		return nil, err
	}
	set.Type = SetType(setType)
	set.Status = SetStatus(status)
	if publishedAt.Valid {
		t := publishedAt.Time
		set.PublishedAt = &t
	}
	return &set, nil
}

func scanQuestion(r rowScanner) (*Question, error) {
	var q Question
	var qType, part string
	var parentID sql.NullInt64
	var showCondition, metadata sql.NullString
	if err := r.Scan(&q.ID, &q.SetID, &q.Order, &q.Text, &qType, &q.IsRequired,
		&q.FieldKey, &parentID, &part, &showCondition, &metadata); err != nil {
		return nil, err
	}
	q.QuestionType = QuestionType(qType)
	q.Part = Part(part)
	if parentID.Valid {
		id := parentID.Int64
		q.ParentQuestionID = &id
	}
	if showCondition.Valid && showCondition.String != "" {
		q.ShowCondition = []byte(showCondition.String)
	}
	if metadata.Valid && metadata.String != "" {
		q.Metadata = []byte(metadata.String)
	}
	return &q, nil
}

func scanOption(r rowScanner) (*Option, error) {
	var o Option
	var jobType string
	if err := r.Scan(&o.ID, &o.QuestionID, &o.Order, &o.Text, &o.Value,
		&o.Score, &jobType, &o.IsCorrect); err != nil {
		return nil, err
	}
	o.JobType = JobType(jobType)
	return &o, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
