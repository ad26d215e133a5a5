// internal/domain/homework/status.go
package homework

import (
	"fmt"
	"strings"
)

// Status is the review state reported by the API for one submission.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Verdicts maps each known status to the sentence sent to the chat.
var Verdicts = map[Status]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// DefaultNameKeys is the lookup chain for the display name of a homework.
// Older API payloads use "homework_name", newer ones "lesson_name".
var DefaultNameKeys = []string{"homework_name", "lesson_name"}

// Record is a single homework entry as decoded from the API.
type Record map[string]any

// String returns the value under key if it is a non-empty string.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Formatter renders notification messages for homework records.
type Formatter struct {
	nameKeys []string
}

// NewFormatter builds a Formatter that looks the display name up under nameKeys, in order.
// An empty list falls back to DefaultNameKeys.
func NewFormatter(nameKeys []string) *Formatter {
	if len(nameKeys) == 0 {
		nameKeys = DefaultNameKeys
	}
	return &Formatter{nameKeys: nameKeys}
}

// ParseStatus turns a record into the chat message describing its current status.
func (f *Formatter) ParseStatus(r Record) (string, error) {
	status, ok := r.String("status")
	if !ok {
		return "", &MissingFieldError{Field: "status"}
	}

	name, ok := f.name(r)
	if !ok {
		return "", &MissingFieldError{Field: f.nameKeys[0]}
	}

	verdict, ok := Verdicts[Status(status)]
	if !ok {
		return "", &UnknownStatusError{Status: status}
	}

	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", name, verdict), nil
}

func (f *Formatter) name(r Record) (string, bool) {
	for _, key := range f.nameKeys {
		if name, ok := r.String(key); ok {
			return name, true
		}
	}
	return "", false
}
