package task

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/Robzoly/StudyPlanner/core"
)

// Categories; open strings in storage, constrained at the API.
const (
	CategoryHomework = "Homework"
	CategoryStudy    = "Study"
	CategoryExam     = "Exam"
	CategoryProject  = "Project"
	CategoryReading  = "Reading"
	CategoryOther    = "Other"
)

var Categories = []string{
	CategoryHomework,
	CategoryStudy,
	CategoryExam,
	CategoryProject,
	CategoryReading,
	CategoryOther,
}

// Priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

type Task struct {
	ID          string      `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	Title       string      `json:"title" db:"title"`
	Description null.String `json:"description" db:"description"`
	DueDate     time.Time   `json:"due_date" db:"due_date"`
	Category    string      `json:"category" db:"category"`
	Priority    string      `json:"priority" db:"priority"`
	Status      string      `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// NewTask contains information needed to create a new Task. It deliberately
// has no owner field: the owner is always forced to the calling identity.
type NewTask struct {
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"omitempty,max=500"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Category    string    `json:"category" validate:"required,oneof=Homework Study Exam Project Reading Other"`
	Priority    string    `json:"priority" validate:"required,oneof=low medium high"`
	Status      string    `json:"status" validate:"omitempty,oneof=pending completed"`
}

func (nt *NewTask) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	if nt.Status == "" {
		nt.Status = StatusPending
	}
	return core.Validate.Struct(nt)
}

// UpdateTask defines what may be modified on an existing Task; zero-valued
// fields keep their current value. Description is a pointer so it can be
// cleared explicitly.
type UpdateTask struct {
	Title       string    `json:"title" validate:"omitempty,max=100"`
	Description *string   `json:"description" validate:"omitempty,max=500"`
	DueDate     time.Time `json:"due_date"`
	Category    string    `json:"category" validate:"omitempty,oneof=Homework Study Exam Project Reading Other"`
	Priority    string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string    `json:"status" validate:"omitempty,oneof=pending completed"`
}

func (ut *UpdateTask) Validate() error {
	ut.Title = core.CleanString(ut.Title)
	if ut.Description != nil {
		desc := core.CleanString(*ut.Description)
		ut.Description = &desc
	}
	return core.Validate.Struct(ut)
}

type QueryFilter struct {
	Status string    `query:"status"`
	From   time.Time `query:"from"`
	To     time.Time `query:"to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.From.IsZero() && qf.To.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

type (
	CalendarEventProps struct {
		Category string `json:"category"`
		Status   string `json:"status"`
	}

	// CalendarEvent is the calendar-feed projection of a Task, colored by priority.
	CalendarEvent struct {
		ID              string             `json:"id"`
		Title           string             `json:"title"`
		Start           time.Time          `json:"start"`
		BackgroundColor string             `json:"backgroundColor"`
		BorderColor     string             `json:"borderColor"`
		TextColor       string             `json:"textColor"`
		ExtendedProps   CalendarEventProps `json:"extendedProps"`
	}
)

var eventColors = map[string][2]string{ // {background, border}
	PriorityHigh:   {"#ef4444", "#dc2626"},
	PriorityMedium: {"#f59e0b", "#d97706"},
	PriorityLow:    {"#22c55e", "#16a34a"},
}

func (t Task) CalendarEvent() CalendarEvent {
	colors := eventColors[t.Priority]
	return CalendarEvent{
		ID:              t.ID,
		Title:           t.Title,
		Start:           t.DueDate,
		BackgroundColor: colors[0],
		BorderColor:     colors[1],
		TextColor:       "#ffffff",
		ExtendedProps: CalendarEventProps{
			Category: t.Category,
			Status:   t.Status,
		},
	}
}
