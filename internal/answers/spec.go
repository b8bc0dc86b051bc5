package answers

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strconv"
)

// Rule types understood by the grading engine.
const (
	TypeNumeric         = "numeric"
	TypeMultipleNumeric = "multiple_numeric"
	TypeExact           = "exact"
	TypeComparison      = "comparison"
	TypeRange           = "range"
	TypeDependent       = "dependent"
)

// Operations allowed on dependent rules.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
)

// Rule is one answer rule. Fields are pointers where the config may omit
// them; a nil required field makes the rule malformed and it grades as a
// failed answer rather than aborting the batch.
type Rule struct {
	Type string `json:"type"`

	CorrectAnswer  *float64    `json:"correctAnswer,omitempty"`
	Limit          *float64    `json:"limit,omitempty"`
	CorrectAnswers []Candidate `json:"correctAnswers,omitempty"`
	Operator       string      `json:"operator,omitempty"`
	Value          *float64    `json:"value,omitempty"`
	Min            *float64    `json:"min,omitempty"`
	Max            *float64    `json:"max,omitempty"`
	DependsOn      string      `json:"dependsOn,omitempty"`
	Operation      string      `json:"operation,omitempty"`
}

// Candidate is one tolerance alternative of a multiple_numeric rule.
type Candidate struct {
	Value *float64 `json:"value"`
	Limit *float64 `json:"limit"`
}

// LabID is a lab identifier that may appear in config as a JSON number or a
// string. It unmarshals to its canonical text form.
type LabID string

func (id *LabID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = LabID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = LabID(n.String())
		return nil
	}
	return errors.New("lab id must be a string or a number")
}

// Matches reports loose equality with a caller-supplied identifier: equal as
// text, or equal as numbers when both sides parse ("1" matches 1).
func (id LabID) Matches(other string) bool {
	if string(id) == other {
		return true
	}
	a, errA := strconv.ParseFloat(string(id), 64)
	b, errB := strconv.ParseFloat(other, 64)
	return errA == nil && errB == nil && a == b
}

// RuleSet is the uniquely-keyed mapping answerKey -> Rule. Declaration order
// is preserved: the submission store derives table columns from it.
type RuleSet struct {
	keys  []string
	rules map[string]Rule
}

func (rs *RuleSet) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("answers must be a JSON object")
	}
	rs.keys = nil
	rs.rules = make(map[string]Rule)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("answer key must be a string")
		}
		var r Rule
		if err := dec.Decode(&r); err != nil {
			return err
		}
		if _, dup := rs.rules[key]; !dup {
			rs.keys = append(rs.keys, key)
		}
		rs.rules[key] = r
	}
	_, err = dec.Token()
	return err
}

// Keys returns the answer keys in declaration order.
func (rs RuleSet) Keys() []string { return rs.keys }

// Get returns the rule for key.
func (rs RuleSet) Get(key string) (Rule, bool) {
	r, ok := rs.rules[key]
	return r, ok
}

// Len is the full rule count; grading reports it as "total" regardless of how
// many fields the student submitted.
func (rs RuleSet) Len() int { return len(rs.keys) }

// Spec is the immutable answer specification of one lab.
type Spec struct {
	ID      LabID   `json:"id"`
	Title   string  `json:"title,omitempty"`
	Answers RuleSet `json:"answers"`
}

// Store resolves a lab's answer specification.
type Store interface {
	// Load returns the spec for labID, or ok=false when the lab is unknown
	// or the configuration source cannot be read.
	Load(labID string) (Spec, bool)
}

// FileStore reads specs from a JSON file holding an array of labs. The file
// is read on every Load so the handle stays trivially safe to share; callers
// that need caching can wrap it.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Load(labID string) (Spec, bool) {
	labs, err := s.loadAll()
	if err != nil {
		return Spec{}, false
	}
	for _, lab := range labs {
		if lab.ID.Matches(labID) {
			return lab, true
		}
	}
	return Spec{}, false
}

// LabIDs lists every lab id present in the config, in file order. Used by the
// statistics lookup to enumerate per-lab tables.
func (s *FileStore) LabIDs() []string {
	labs, err := s.loadAll()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(labs))
	for _, lab := range labs {
		ids = append(ids, string(lab.ID))
	}
	return ids
}

func (s *FileStore) loadAll() ([]Spec, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var labs []Spec
	if err := json.Unmarshal(raw, &labs); err != nil {
		return nil, err
	}
	return labs, nil
}
