package grading

import (
	"context"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/labworks/labgrade/internal/answers"
)

// Submission is one raw form submission as handed over by the request layer.
type Submission struct {
	Method string            // HTTP method indicator
	Fields map[string]string // field name -> raw text
}

// Field returns a submitted field's raw text.
func (s Submission) Field(key string) (string, bool) {
	v, ok := s.Fields[key]
	return v, ok
}

// Result is the aggregate grading outcome, serialized verbatim to callers.
type Result struct {
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Error      string `json:"error,omitempty"`
}

// SubmissionStore persists one graded submission. Failures are the store's
// own business: the engine logs and swallows them.
type SubmissionStore interface {
	Save(ctx context.Context, spec answers.Spec, studentID string, fields map[string]string, res Result) error
}

const (
	errMethodNotAllowed = "Method not allowed"
	errLabNotFound      = "Laboratory work not found"

	// answerPrefix marks answer fields in the submission; everything else in
	// the form (lab id, student id, action type) is ignored by grading.
	answerPrefix = "Answer"

	defaultLabID     = "1"
	defaultStudentID = "unknown"
)

// Engine grades submissions against the lab's answer specification and
// drives persistence.
type Engine struct {
	specs  answers.Store
	store  SubmissionStore // optional
	logger *log.Logger
}

func NewEngine(specs answers.Store, store SubmissionStore, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{specs: specs, store: store, logger: logger}
}

// Grade evaluates every present answer field against the lab's rule set and
// returns the aggregate. The returned result is always well formed; user
// errors and unknown labs come back as a Result with Error set, never as an
// error value.
func (e *Engine) Grade(ctx context.Context, sub Submission) Result {
	if sub.Method != http.MethodPost {
		return Result{Error: errMethodNotAllowed}
	}

	labID := resolveLabID(sub)
	spec, ok := e.specs.Load(labID)
	if !ok {
		return Result{Error: errLabNotFound}
	}

	userAnswers := answerFields(sub)

	correct := 0
	for _, key := range spec.Answers.Keys() {
		raw, submitted := userAnswers[key]
		if !submitted {
			continue
		}
		rule, _ := spec.Answers.Get(key)
		value, numeric := NormalizeNumber(raw)
		if !numeric {
			continue
		}
		if Evaluate(rule, value, sub.Field) {
			correct++
		}
	}

	total := spec.Answers.Len()
	res := Result{Correct: correct, Total: total, Percentage: percentage(correct, total)}

	if e.store != nil {
		studentID := sub.Fields["id"]
		if studentID == "" {
			studentID = defaultStudentID
		}
		if err := e.store.Save(ctx, spec, studentID, userAnswers, res); err != nil {
			// Grading feedback must never fail because audit logging failed.
			e.logger.Printf("labgrade: save submission lab=%s student=%s: %v", spec.ID, studentID, err)
		}
	}
	return res
}

// resolveLabID picks the lab identifier out of the submission. Two caller
// formats are in use: lab_id wins, labNumber is the alias, and a bare
// submission grades against lab 1.
func resolveLabID(sub Submission) string {
	if v := sub.Fields["lab_id"]; v != "" {
		return v
	}
	if v := sub.Fields["labNumber"]; v != "" {
		return v
	}
	return defaultLabID
}

func answerFields(sub Submission) map[string]string {
	out := make(map[string]string)
	for k, v := range sub.Fields {
		if strings.HasPrefix(k, answerPrefix) && v != "" {
			out[k] = v
		}
	}
	return out
}

func percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
