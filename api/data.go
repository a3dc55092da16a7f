package main

import (
	"encoding/json"
	"fmt"
	"time"
)

type user struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"fullName"`
	PasswordHash string `json:"passwordHash"`
}

// publicUser is the shape of a user in API responses. It never carries the hash.
type publicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

func (u *user) public() publicUser {
	return publicUser{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
	}
}

type taskStatus string

const (
	statusUnfinished taskStatus = "Unfinished"
	statusDone       taskStatus = "Done"
)

func (s taskStatus) valid() bool {
	return s == statusUnfinished || s == statusDone
}

type task struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"ownerId"`
	Content       string     `json:"content"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
	Status        taskStatus `json:"status"`
}

// UnmarshalJSON accepts dates written as RFC 3339 timestamps or as plain
// YYYY-MM-DD dates.
func (t *task) UnmarshalJSON(data []byte) error {
	type plain task
	var raw struct {
		plain
		DueDate       *string `json:"dueDate"`
		CompletedDate *string `json:"completedDate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = task(raw.plain)
	var err error
	if t.DueDate, err = parseOptionalDate(raw.DueDate); err != nil {
		return fmt.Errorf("dueDate: %w", err)
	}
	if t.CompletedDate, err = parseOptionalDate(raw.CompletedDate); err != nil {
		return fmt.Errorf("completedDate: %w", err)
	}
	return nil
}

// parseDate parses an RFC 3339 timestamp or a YYYY-MM-DD date, in UTC.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, value)
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// identity is what the auth gate resolves from a session token.
type identity struct {
	ID    string
	Email string
}
