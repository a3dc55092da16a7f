package main

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// validationError lists the offending fields of a request. No mutation happens when
// one is returned.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.fields[k]))
	}
	return strings.Join(parts, "; ")
}

type validator struct {
	errors map[string]string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

func (v *validator) toError() error {
	if !v.hasErrors() {
		return nil
	}
	return &validationError{fields: v.errors}
}

func (v *validator) hasErrors() bool {
	return len(v.errors) != 0
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
	}
}

func (v *validator) checkEmail(email string) {
	v.checkCond(email != "", "email", "must be provided")
	v.checkCond(emailRegexp.MatchString(email), "email", "must be a valid email address")
}

// checkPassword enforces the signup rules. bcrypt ignores anything past 72 bytes.
func (v *validator) checkPassword(password string) {
	v.checkCond(password != "", "password", "must be provided")
	v.checkCond(len(password) >= 6, "password", "must be atleast 6 characters long")
	v.checkCond(len(password) <= 72, "password", "must be atmost 72 characters long")
}

func (v *validator) checkContent(content string) {
	v.checkCond(strings.TrimSpace(content) != "", "content", "must be provided")
	v.checkCond(len(content) <= 1000, "content", "must be atmost 1000 characters")
}

func (v *validator) checkStatus(status taskStatus) {
	v.checkCond(status.valid(), "status", fmt.Sprintf("must be %q or %q", statusUnfinished, statusDone))
}

// checkDate parses an RFC 3339 timestamp or a plain YYYY-MM-DD date.
func (v *validator) checkDate(key, value string) *time.Time {
	t, err := parseDate(value)
	if err != nil {
		v.checkCond(false, key, "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
		return nil
	}
	return &t
}
