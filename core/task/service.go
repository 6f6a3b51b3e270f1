package task

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Robzoly/StudyPlanner/core"
)

var (
	// errors
	ErrNotFound = errors.New("task not found")
)

// Experience awarded per task lifecycle event.
const (
	CreateExperiencePoints   = 10
	CompleteExperiencePoints = 20

	firstTaskAchievementCode = "first-task"
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task) (Task, error)
		// QueryTasks returns the owner's tasks; default ordering is due date ascending.
		QueryTasks(ctx context.Context, userID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error)
		GetTask(ctx context.Context, userID, id string) (Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		DeleteTask(ctx context.Context, userID, id string) error
	}

	// ProgressEngine is the accrual engine invoked after task lifecycle
	// events. Eligibility is this caller's responsibility, not the engine's.
	ProgressEngine interface {
		AwardExperience(ctx context.Context, userID string, points int) error
		RefreshStreak(ctx context.Context, userID string) error
		UnlockAchievementByCode(ctx context.Context, userID, code string) error
	}

	Service struct {
		repo   Repository
		engine ProgressEngine
		logger core.Logger
	}
)

func NewService(repo Repository, engine ProgressEngine, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
		logger: logger,
	}
}

// Create persists a new Task owned by userID, then runs the creation accrual
// chain (+10 XP, streak refresh, first-task unlock attempt).
func (svc *Service) Create(ctx context.Context, userID string, nt NewTask) (Task, error) {
	now := time.Now().UTC()
	t := Task{
		UserID:      userID,
		Title:       nt.Title,
		Description: null.NewString(nt.Description, nt.Description != ""),
		DueDate:     nt.DueDate.UTC(),
		Category:    nt.Category,
		Priority:    nt.Priority,
		Status:      nt.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	t, err := svc.repo.CreateTask(ctx, t)
	if err != nil {
		return Task{}, errors.Wrap(err, "creating task")
	}

	svc.accrue(ctx, userID, CreateExperiencePoints, true)
	return t, nil
}

func (svc *Service) Query(ctx context.Context, userID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error) {
	return svc.repo.QueryTasks(ctx, userID, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Task, error) {
	return svc.repo.GetTask(ctx, userID, id)
}

// Update applies a partial update. Only the pending -> completed transition
// triggers the completion accrual chain; edits of an already-completed task
// do not re-award.
func (svc *Service) Update(ctx context.Context, userID, id string, ut UpdateTask) (Task, error) {
	orig, err := svc.repo.GetTask(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}
	wasCompleted := orig.IsCompleted()

	t := orig
	if ut.Title != "" {
		t.Title = ut.Title
	}
	if ut.Description != nil {
		t.Description = null.NewString(*ut.Description, *ut.Description != "")
	}
	if !ut.DueDate.IsZero() {
		t.DueDate = ut.DueDate.UTC()
	}
	if ut.Category != "" {
		t.Category = ut.Category
	}
	if ut.Priority != "" {
		t.Priority = ut.Priority
	}
	if ut.Status != "" {
		t.Status = ut.Status
	}
	t.UpdatedAt = time.Now().UTC()

	t, err = svc.repo.UpdateTask(ctx, t)
	if err != nil {
		return Task{}, errors.Wrap(err, "updating task")
	}

	if !wasCompleted && t.IsCompleted() {
		svc.accrue(ctx, userID, CompleteExperiencePoints, false)
	}
	return t, nil
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	return svc.repo.DeleteTask(ctx, userID, id)
}

// Calendar projects the owner's tasks onto calendar events.
func (svc *Service) Calendar(ctx context.Context, userID string, filter *QueryFilter) ([]CalendarEvent, error) {
	tasks, err := svc.repo.QueryTasks(ctx, userID, filter, nil)
	if err != nil {
		return nil, err
	}
	events := make([]CalendarEvent, 0, len(tasks))
	for _, t := range tasks {
		events = append(events, t.CalendarEvent())
	}
	return events, nil
}

// accrue runs the post-event accrual chain. Each step is an independent
// round-trip with no atomicity across them: a failed step is logged and the
// remaining steps still run; nothing is rolled back.
func (svc *Service) accrue(ctx context.Context, userID string, points int, firstTaskUnlock bool) {
	if err := svc.engine.AwardExperience(ctx, userID, points); err != nil {
		svc.logger.Warn("awarding experience", errors.Wrap(err, "awarding experience"))
	}
	if err := svc.engine.RefreshStreak(ctx, userID); err != nil {
		svc.logger.Warn("refreshing streak", errors.Wrap(err, "refreshing streak"))
	}
	if firstTaskUnlock {
		// every creation attempts the unlock; the uniqueness constraint dedupes
		if err := svc.engine.UnlockAchievementByCode(ctx, userID, firstTaskAchievementCode); err != nil {
			svc.logger.Warn("unlocking achievement", errors.Wrap(err, "unlocking achievement"))
		}
	}
}
