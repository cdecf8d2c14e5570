// Package grading holds the server-only answer key and the scoring rules.
package grading

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
)

//go:embed answer_key.json
var embeddedKey []byte

// ErrEmptyKey is returned when an answer key has no entries.
var ErrEmptyKey = errors.New("answer key is empty")

// AnswerKey maps question ids to their correct option letter. It is built
// once at start-up and never mutated, so it is safe for concurrent reads.
type AnswerKey struct {
	letters map[string]string
}

// NewAnswerKey copies m into a validated AnswerKey. Letters must be A-D.
func NewAnswerKey(m map[string]string) (*AnswerKey, error) {
	if len(m) == 0 {
		return nil, ErrEmptyKey
	}
	letters := make(map[string]string, len(m))
	for qid, letter := range m {
		if qid == "" {
			return nil, errors.New("answer key contains an empty question id")
		}
		switch letter {
		case "A", "B", "C", "D":
		default:
			return nil, fmt.Errorf("question %s: invalid letter %q", qid, letter)
		}
		letters[qid] = letter
	}
	return &AnswerKey{letters: letters}, nil
}

// Default returns the answer key compiled into the binary.
func Default() (*AnswerKey, error) {
	return parse(embeddedKey)
}

// Load reads an answer key from a JSON file, or returns the embedded key
// when path is empty.
func Load(path string) (*AnswerKey, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answer key: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*AnswerKey, error) {
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode answer key: %w", err)
	}
	return NewAnswerKey(m)
}

// Len is the number of questions in the key, i.e. TotalQuestions.
func (k *AnswerKey) Len() int {
	return len(k.letters)
}

// IsCorrect reports whether letter is the key's value for qid.
// Unknown ids are never correct. The comparison is case-sensitive.
func (k *AnswerKey) IsCorrect(qid, letter string) bool {
	want, ok := k.letters[qid]
	return ok && want == letter
}

// Score is the outcome of grading one submission.
type Score struct {
	TotalCorrect   int
	TotalQuestions int
	Accuracy       float64
}

// Grade counts the submitted pairs that match the key. A question id that
// appears more than once is judged on its first occurrence only.
func (k *AnswerKey) Grade(answers []model.SubmittedAnswer) Score {
	seen := make(map[string]struct{}, len(answers))
	correct := 0
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		if k.IsCorrect(a.QuestionID, a.SelectedOption) {
			correct++
		}
	}
	return Score{
		TotalCorrect:   correct,
		TotalQuestions: k.Len(),
		Accuracy:       Percent(correct, k.Len()),
	}
}

// Percent returns 100*part/whole rounded to one decimal place (0 when whole is 0).
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(whole)) / 10
}

// ElapsedSeconds is end-start rounded to whole seconds, clamped at zero.
func ElapsedSeconds(start, end time.Time) int64 {
	secs := math.Round(end.Sub(start).Seconds())
	if secs < 0 {
		return 0
	}
	return int64(secs)
}
