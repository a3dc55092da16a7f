package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	errDuplicateEmail     = errors.New("email already exists")
	errInvalidCredentials = errors.New("invalid credentials")
	errTaskNotFound       = errors.New("task not found")
)

type registerInput struct {
	Email    string
	Password string
	FullName string
}

type authService struct {
	storage *storage
	tokens  *tokenIssuer
}

func newAuthService(s *storage, tokens *tokenIssuer) *authService {
	return &authService{
		storage: s,
		tokens:  tokens,
	}
}

func (as *authService) listUsers(ctx context.Context) ([]user, error) {
	return as.storage.getUsers(ctx)
}

// register stores a new user. Emails are compared exactly, without case folding.
func (as *authService) register(ctx context.Context, in registerInput) (*user, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := user{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
	}
	err = as.storage.updateUsers(ctx, func(users []user) ([]user, error) {
		for _, existing := range users {
			if existing.Email == u.Email {
				return nil, errDuplicateEmail
			}
		}
		return append(users, u), nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// login returns errInvalidCredentials for an unknown email and for a wrong password
// alike. An unknown email still pays for one bcrypt comparison.
func (as *authService) login(ctx context.Context, email, password string) (string, *user, error) {
	users, err := as.storage.getUsers(ctx)
	if err != nil {
		return "", nil, err
	}
	var found *user
	for i := range users {
		if users[i].Email == email {
			found = &users[i]
			break
		}
	}
	if found == nil {
		dummyHashOnce.Do(func() {
			dummyHash, _ = hashPassword(uuid.NewString())
		})
		_, _ = verifyPassword(password, dummyHash)
		return "", nil, errInvalidCredentials
	}
	ok, err := verifyPassword(password, found.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", nil, errInvalidCredentials
	}
	token, err := as.tokens.issue(identity{ID: found.ID, Email: found.Email})
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, found, nil
}

type createTaskInput struct {
	Content string
	DueDate *time.Time
	Status  taskStatus
}

// updateTaskInput holds the fields to replace. nil means leave unchanged.
type updateTaskInput struct {
	Content *string
	DueDate *time.Time
	Status  *taskStatus
}

type taskService struct {
	storage *storage
	now     func() time.Time
}

func newTaskService(s *storage) *taskService {
	return &taskService{
		storage: s,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Second)
		},
	}
}

// listAll returns every stored task regardless of owner.
func (ts *taskService) listAll(ctx context.Context) ([]task, error) {
	return ts.storage.getTasks(ctx)
}

func (ts *taskService) listMine(ctx context.Context, id identity) ([]task, error) {
	tasks, err := ts.storage.getTasks(ctx)
	if err != nil {
		return nil, err
	}
	mine := []task{}
	for _, t := range tasks {
		if t.OwnerID == id.ID {
			mine = append(mine, t)
		}
	}
	return mine, nil
}

func (ts *taskService) create(ctx context.Context, id identity, in createTaskInput) (*task, error) {
	t := task{
		ID:      uuid.NewString(),
		OwnerID: id.ID,
		Content: in.Content,
		DueDate: in.DueDate,
		Status:  statusUnfinished,
	}
	if in.Status != "" {
		t.Status = in.Status
	}
	if t.Status == statusDone {
		now := ts.now()
		t.CompletedDate = &now
	}
	err := ts.storage.updateTasks(ctx, func(tasks []task) ([]task, error) {
		return append(tasks, t), nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// update applies the supplied fields to a task owned by the caller. Tasks owned by
// someone else are reported as not found.
func (ts *taskService) update(ctx context.Context, id identity, taskID string, in updateTaskInput) (*task, error) {
	var updated task
	err := ts.storage.updateTasks(ctx, func(tasks []task) ([]task, error) {
		i := indexOwnedTask(tasks, id, taskID)
		if i < 0 {
			return nil, errTaskNotFound
		}
		t := &tasks[i]
		if in.Content != nil {
			t.Content = *in.Content
		}
		if in.DueDate != nil {
			t.DueDate = in.DueDate
		}
		if in.Status != nil && *in.Status != t.Status {
			t.Status = *in.Status
			if t.Status == statusDone {
				now := ts.now()
				t.CompletedDate = &now
			} else {
				t.CompletedDate = nil
			}
		}
		updated = *t
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (ts *taskService) delete(ctx context.Context, id identity, taskID string) error {
	return ts.storage.updateTasks(ctx, func(tasks []task) ([]task, error) {
		i := indexOwnedTask(tasks, id, taskID)
		if i < 0 {
			return nil, errTaskNotFound
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

func indexOwnedTask(tasks []task, id identity, taskID string) int {
	for i, t := range tasks {
		if t.ID == taskID && t.OwnerID == id.ID {
			return i
		}
	}
	return -1
}
