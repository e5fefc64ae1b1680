package question

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CheckAnswer reports whether value answers a multiple-choice question
// correctly. Only the first non-space character of the submitted value and
// of the answer key are compared, case-insensitively, so "b", "B" and
// "B) 35" all match an answer key of "B) 35".
//
// Blank answers are incorrect. CheckAnswer returns false for questions that
// are not multiple-choice; those are graded by a person.
func CheckAnswer(value string, q Question) bool {
	if !q.IsMultipleChoice() {
		return false
	}
	got, ok := firstRune(value)
	if !ok {
		return false
	}
	want, ok := firstRune(q.AnswerKey)
	if !ok {
		return false
	}
	return unicode.ToLower(got) == unicode.ToLower(want)
}

// IsBlank reports whether a submitted value counts as unanswered.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

func firstRune(s string) (rune, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, r != utf8.RuneError
}
