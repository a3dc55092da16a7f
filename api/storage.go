package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// userStore persists the whole user collection. Every save replaces what was there.
type userStore interface {
	loadUsers(ctx context.Context) ([]user, error)
	saveUsers(ctx context.Context, users []user) error
}

// taskStore persists the whole task collection. Every save replaces what was there.
type taskStore interface {
	loadTasks(ctx context.Context) ([]task, error)
	saveTasks(ctx context.Context, tasks []task) error
}

type fileStore struct {
	usersPath string
	tasksPath string
}

func newFileStore(usersPath, tasksPath string) *fileStore {
	return &fileStore{
		usersPath: usersPath,
		tasksPath: tasksPath,
	}
}

func (s *fileStore) loadUsers(ctx context.Context) ([]user, error) {
	return readJSONArray[user](s.usersPath)
}

func (s *fileStore) saveUsers(ctx context.Context, users []user) error {
	return writeJSONArray(s.usersPath, users)
}

func (s *fileStore) loadTasks(ctx context.Context) ([]task, error) {
	return readJSONArray[task](s.tasksPath)
}

func (s *fileStore) saveTasks(ctx context.Context, tasks []task) error {
	return writeJSONArray(s.tasksPath, tasks)
}

// readJSONArray returns an empty slice when the file is missing or does not hold a
// JSON array. Other read failures are returned.
func readJSONArray[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("ignoring unreadable data in %s: %v", path, err)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// writeJSONArray overwrites path with items as a 2-space indented JSON array. The data is
// written to a temp file first and renamed over the target.
func writeJSONArray[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// storage serializes read-modify-write cycles per entity type so that concurrent
// writers cannot overwrite each other's changes.
type storage struct {
	users userStore
	tasks taskStore

	usersMu sync.Mutex
	tasksMu sync.Mutex
}

func newStorage(users userStore, tasks taskStore) *storage {
	return &storage{
		users: users,
		tasks: tasks,
	}
}

func (s *storage) getUsers(ctx context.Context) ([]user, error) {
	return s.users.loadUsers(ctx)
}

func (s *storage) getTasks(ctx context.Context) ([]task, error) {
	return s.tasks.loadTasks(ctx)
}

// updateUsers loads the user collection, passes it to fn and saves what fn returns.
// Nothing is saved when fn fails.
func (s *storage) updateUsers(ctx context.Context, fn func([]user) ([]user, error)) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.users.loadUsers(ctx)
	if err != nil {
		return err
	}
	users, err = fn(users)
	if err != nil {
		return err
	}
	return s.users.saveUsers(ctx, users)
}

// updateTasks is updateUsers for the task collection.
func (s *storage) updateTasks(ctx context.Context, fn func([]task) ([]task, error)) error {
	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	tasks, err := s.tasks.loadTasks(ctx)
	if err != nil {
		return err
	}
	tasks, err = fn(tasks)
	if err != nil {
		return err
	}
	return s.tasks.saveTasks(ctx, tasks)
}
