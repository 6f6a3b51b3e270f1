package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core"
	"github.com/Robzoly/StudyPlanner/core/task"
)

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to task.ErrNotFound
func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return task.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	t.ID = uuid.New().String()

	query := `
		INSERT INTO task (id, user_id, title, description, due_date, category, priority, status, created_at, updated_at)
		VALUES (:id, :user_id, :title, :description, :due_date, :category, :priority, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, t); err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) QueryTasks(ctx context.Context, userID string, filter *task.QueryFilter, ordering []core.DBOrdering) ([]task.Task, error) {
	query := `SELECT * FROM task WHERE user_id = $1`
	args := []interface{}{userID}

	if filter != nil {
		if filter.Status != "" {
			args = append(args, filter.Status)
			query += ` AND status = $` + strconv.Itoa(len(args))
		}
		if !filter.From.IsZero() {
			args = append(args, filter.From.UTC())
			query += ` AND due_date >= $` + strconv.Itoa(len(args))
		}
		if !filter.To.IsZero() {
			args = append(args, filter.To.UTC())
			query += ` AND due_date <= $` + strconv.Itoa(len(args))
		}
	}

	query += ` ORDER BY ` + orderClause(ordering)

	tasks := make([]task.Task, 0)
	if err := repo.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	return tasks, nil
}

// columns callers may sort on; ordering fields come straight from the query
// string and must never reach the SQL text unchecked
var taskSortColumns = map[string]bool{
	"due_date":   true,
	"created_at": true,
	"title":      true,
}

// orderClause builds the ORDER BY list from sortable columns only,
// dropping unknown fields. Due date ascending unless told otherwise.
func orderClause(ordering []core.DBOrdering) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if !taskSortColumns[ord.Field] {
			continue
		}
		orderList = append(orderList, ord.String())
	}
	if len(orderList) == 0 {
		return "due_date ASC"
	}
	return strings.Join(orderList, ", ")
}

func (repo taskRepository) GetTask(ctx context.Context, userID, id string) (task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return task.Task{}, task.ErrNotFound
	}

	var t task.Task
	if err := repo.db.GetContext(ctx, &t, `SELECT * FROM task WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return task.Task{}, repo.trapNoRowsErr(err, "finding task")
	}
	return t, nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	query := `
		UPDATE task
		SET title = :title, description = :description, due_date = :due_date, category = :category,
			priority = :priority, status = :status, updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id`
	res, err := repo.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func (repo taskRepository) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM task WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return task.ErrNotFound
	}
	return nil
}
