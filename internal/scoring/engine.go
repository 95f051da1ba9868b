package scoring

import (
	"sort"

	"aptisurvey/internal/survey"
)

// Response carries a respondent's raw answers keyed by question field key.
// Part 1 and Part 2 answers select an option by its 1-based ordinal; Part 3
// answers name a job-type code. Responses are transient, built per request.
type Response struct {
	Part1 map[string]int    `json:"part1"`
	Part2 map[string]int    `json:"part2"`
	Part3 map[string]string `json:"part3"`
}

type Grade string

const (
	GradeTalented   Grade = "TALENTED"
	GradeDiligent   Grade = "DILIGENT"
	GradeExploring  Grade = "EXPLORING"
	GradeReconsider Grade = "RECONSIDER"
)

// Part1Points is the fixed contribution of a correct Part 1 answer.
const Part1Points = 10

type Result struct {
	Part1Score     int                    `json:"part1_score"`
	Part2Score     int                    `json:"part2_score"`
	AptitudeScore  int                    `json:"aptitude_score"`
	Grade          Grade                  `json:"grade"`
	JobTypeTallies map[survey.JobType]int `json:"job_type_tallies"`
	RecommendedJob string                 `json:"recommended_job"`

	// Anomalies are recorded, never raised: a partial or malformed
	// submission still scores, contributing 0 for the affected questions.
	MissingAnswers      []string `json:"missing_answers,omitempty"`
	UnrecognizedAnswers []string `json:"unrecognized_answers,omitempty"`
}

// Score evaluates a response against a fully loaded question set. It is pure
// and deterministic: identical inputs yield identical results regardless of
// map iteration order.
func Score(set *survey.QuestionSet, resp Response) Result {
	questions := make([]survey.Question, len(set.Questions))
	copy(questions, set.Questions)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })

	res := Result{
		JobTypeTallies: make(map[survey.JobType]int, len(survey.JobTypes)),
	}
	for _, jt := range survey.JobTypes {
		res.JobTypeTallies[jt] = 0
	}

	for i := range questions {
		q := &questions[i]
		switch q.Part {
		case survey.Part1:
			ordinal, ok := resp.Part1[q.FieldKey]
			if !ok {
				res.MissingAnswers = append(res.MissingAnswers, q.FieldKey)
				continue
			}
			opt := optionByOrder(q.Options, ordinal)
			if opt == nil {
				res.UnrecognizedAnswers = append(res.UnrecognizedAnswers, q.FieldKey)
				continue
			}
			if opt.IsCorrect {
				res.Part1Score += Part1Points
			}
		case survey.Part2:
			ordinal, ok := resp.Part2[q.FieldKey]
			if !ok {
				res.MissingAnswers = append(res.MissingAnswers, q.FieldKey)
				continue
			}
			opt := optionByOrder(q.Options, ordinal)
			if opt == nil {
				res.UnrecognizedAnswers = append(res.UnrecognizedAnswers, q.FieldKey)
				continue
			}
			res.Part2Score += opt.Score
		case survey.Part3:
			raw, ok := resp.Part3[q.FieldKey]
			if !ok {
				res.MissingAnswers = append(res.MissingAnswers, q.FieldKey)
				continue
			}
			code, ok := survey.ParseJobType(raw)
			if !ok {
				res.UnrecognizedAnswers = append(res.UnrecognizedAnswers, q.FieldKey)
				continue
			}
			res.JobTypeTallies[code]++
		}
	}

	res.AptitudeScore = res.Part1Score + res.Part2Score
	res.Grade = GradeForScore(res.AptitudeScore)
	res.RecommendedJob = recommendJob(res.JobTypeTallies)
	return res
}

// GradeForScore maps a total score to its band, highest band first.
// Anything outside [0,80] falls through to RECONSIDER.
func GradeForScore(score int) Grade {
	switch {
	case score >= 61 && score <= 80:
		return GradeTalented
	case score >= 41 && score <= 60:
		return GradeDiligent
	case score >= 21 && score <= 40:
		return GradeExploring
	default:
		return GradeReconsider
	}
}

// recommendJob picks the job category for the highest tally. Ties at the
// maximum, or a zero maximum, resolve to the generalist recommendation
// rather than an arbitrary winner.
func recommendJob(tallies map[survey.JobType]int) string {
	max := 0
	winners := 0
	var top survey.JobType
	for _, jt := range survey.JobTypes {
		n := tallies[jt]
		switch {
		case n > max:
			max = n
			winners = 1
			top = jt
		case n == max && n > 0:
			winners++
		}
	}
	if max == 0 || winners > 1 {
		return survey.JobFullStack
	}
	return top.RecommendedJob()
}

func optionByOrder(options []survey.Option, ordinal int) *survey.Option {
	for i := range options {
		if options[i].Order == ordinal {
			return &options[i]
		}
	}
	return nil
}
