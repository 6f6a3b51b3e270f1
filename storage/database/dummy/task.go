package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Robzoly/StudyPlanner/core"
	"github.com/Robzoly/StudyPlanner/core/task"
)

type taskRepository struct {
	db *taskTable
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db.task}
}

func (repo *taskRepository) query(userID string) []task.Task {
	tasks := make([]task.Task, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		if t.UserID == userID {
			tasks = append(tasks, *t)
		}
	}
	return tasks
}

func (repo *taskRepository) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) QueryTasks(_ context.Context, userID string, filter *task.QueryFilter, ordering []core.DBOrdering) ([]task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tasks := repo.query(userID)

	if filter != nil {
		if filter.Status != "" {
			var filtered []task.Task
			for _, t := range tasks {
				if t.Status == filter.Status {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		if !filter.From.IsZero() {
			var filtered []task.Task
			fromUTC := filter.From.UTC()
			for _, t := range tasks {
				if t.DueDate.Equal(fromUTC) || t.DueDate.After(fromUTC) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		if !filter.To.IsZero() {
			var filtered []task.Task
			toUTC := filter.To.UTC()
			for _, t := range tasks {
				if t.DueDate.Before(toUTC) || t.DueDate.Equal(toUTC) {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
	}

	sortTasks(tasks, ordering)
	return tasks, nil
}

func (repo *taskRepository) GetTask(_ context.Context, userID, id string) (task.Task, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.table[id]; ok && t.UserID == userID {
		return *t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) UpdateTask(_ context.Context, t task.Task) (task.Task, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[t.ID]
	if !ok || orig.UserID != t.UserID {
		return task.Task{}, task.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) DeleteTask(_ context.Context, userID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if t, ok := repo.db.table[id]; !ok || t.UserID != userID {
		return task.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func sortTasks(tasks []task.Task, ordering []core.DBOrdering) {
	// sortable columns only, matching the sqlx repository
	keys := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		switch ord.Field {
		case "due_date", "created_at", "title":
			keys = append(keys, ord)
		}
	}
	// due date ascending unless told otherwise
	if len(keys) == 0 {
		keys = []core.DBOrdering{{Field: "due_date", Ascending: true}}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		for _, ord := range keys {
			cmp := compareTasks(tasks[i], tasks[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareTasks(a, b task.Task, field string) int {
	switch field {
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	case "title":
		switch {
		case a.Title < b.Title:
			return -1
		case a.Title > b.Title:
			return 1
		}
	default: // due_date
		switch {
		case a.DueDate.Before(b.DueDate):
			return -1
		case a.DueDate.After(b.DueDate):
			return 1
		}
	}
	return 0
}
