package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/Robzoly/StudyPlanner/core/progress"
	"github.com/Robzoly/StudyPlanner/core/task"
)

func createTask(t *testing.T, userID, title, category, priority, status string, dueDate time.Time) task.Task {
	t.Helper()

	now := time.Now().UTC()
	tsk, err := taskRepo.CreateTask(context.Background(), task.Task{
		UserID:    userID,
		Title:     title,
		DueDate:   dueDate.UTC(),
		Category:  category,
		Priority:  priority,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTask() failed, %v", err)
	}
	return tsk
}

func getProfile(t *testing.T, userID string) progress.Profile {
	t.Helper()

	prof, err := progressRepo.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetProfile() failed, %v", err)
	}
	return prof
}

func Test_taskApi_create(t *testing.T) {
	app := setup(t)

	student := createUser(t, "Jane Doe", "jane@test.cd", "LolC@t123", true)
	token := getToken(t, student)
	due := time.Date(2021, time.June, 15, 9, 0, 0, 0, time.UTC)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": reqMsg, "due_date": reqMsg, "category": reqMsg, "priority": reqMsg}),
		},
		{
			name: "invalid category", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, task.NewTask{Title: "Algebra homework", DueDate: due, Category: "lol", Priority: task.PriorityHigh}),
			wantData: marchallObj(t, map[string]string{"category": "category must be one of [Homework Study Exam Project Reading Other]"}),
		},
		{
			name: "invalid priority", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, task.NewTask{Title: "Algebra homework", DueDate: due, Category: task.CategoryHomework, Priority: "lol"}),
			wantData: marchallObj(t, map[string]string{"priority": "priority must be one of [low medium high]"}),
		},
		{
			name: "invalid status", token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, task.NewTask{Title: "Algebra homework", DueDate: due, Category: task.CategoryHomework, Priority: task.PriorityHigh, Status: "lol"}),
			wantData: marchallObj(t, map[string]string{"status": "status must be one of [pending completed]"}),
		},
		{
			name: "created", token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, task.NewTask{Title: "Algebra homework", Description: "Chapters 1-3", DueDate: due, Category: task.CategoryHomework, Priority: task.PriorityHigh}),
		},
		{
			name: "created again", token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, task.NewTask{Title: "History essay", DueDate: due.Add(24 * time.Hour), Category: task.CategoryStudy, Priority: task.PriorityLow}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/tasks"

		t.Run(tt.name, func(t *testing.T) {
			expProfile := getProfile(t, student.ID)

			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var tsk task.Task
				if err := json.Unmarshal(rec.Body.Bytes(), &tsk); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if tsk.ID == "" {
					t.Error("failed! empty task ID")
				}
				if tsk.UserID != student.ID {
					t.Errorf("failed! UserID = %v; want %v", tsk.UserID, student.ID)
				}
				if tsk.Status != task.StatusPending {
					t.Errorf("failed! Status = %v; want %v", tsk.Status, task.StatusPending)
				}

				// each creation awards experience; streak is untouched on a same-day event
				prof := getProfile(t, student.ID)
				if want := expProfile.Experience + task.CreateExperiencePoints; prof.Experience != want {
					t.Errorf("failed! Experience = %d; want %d", prof.Experience, want)
				}
				if prof.StreakCount != expProfile.StreakCount {
					t.Errorf("failed! StreakCount = %d; want %d", prof.StreakCount, expProfile.StreakCount)
				}

				// only the very first creation unlocks "first-task"; later ones dedupe
				uas, err := progressRepo.QueryUserAchievements(context.Background(), student.ID)
				if err != nil {
					t.Fatalf("QueryUserAchievements() failed, %v", err)
				}
				if len(uas) != 1 {
					t.Fatalf("failed! len(unlocked) = %d; want 1", len(uas))
				}
				if uas[0].Achievement == nil || uas[0].Achievement.Code != "first-task" {
					t.Errorf("failed! unlocked = %+v; want first-task", uas[0].Achievement)
				}
				return
			}
			checkCodeAndData(t, tt, rec)

			// failed attempts award nothing
			if prof := getProfile(t, student.ID); prof.Experience != expProfile.Experience {
				t.Errorf("failed! Experience = %d; want %d", prof.Experience, expProfile.Experience)
			}
		})
	}
}

// Creating a task after being last active yesterday both awards experience
// and extends the streak.
func Test_taskApi_create_extendsStreak(t *testing.T) {
	app := setup(t)

	student := createUser(t, "Jane Doe", "jane@test.cd", "LolC@t123", true)
	token := getToken(t, student)

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)
	if _, err := progressRepo.UpdateStreak(context.Background(), student.ID, 3, yesterday); err != nil {
		t.Fatalf("UpdateStreak() failed, %v", err)
	}

	body := marchallObj(t, task.NewTask{
		Title:    "Algebra homework",
		DueDate:  now.Add(24 * time.Hour),
		Category: task.CategoryHomework,
		Priority: task.PriorityHigh,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/tasks", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	prof := getProfile(t, student.ID)
	if prof.Experience != task.CreateExperiencePoints {
		t.Errorf("Experience = %d; want %d", prof.Experience, task.CreateExperiencePoints)
	}
	if prof.StreakCount != 4 {
		t.Errorf("StreakCount = %d; want 4", prof.StreakCount)
	}
	if !prof.LastActiveDate.Equal(today) {
		t.Errorf("LastActiveDate = %v; want %v", prof.LastActiveDate, today)
	}
}

func Test_taskApi_query(t *testing.T) {
	app := setup(t)

	student := createUser(t, "Jane Doe", "jane@test.cd", "LolC@t123", true)
	other := createUser(t, "John Doe", "john@test.cd", "LolC@t123", true)
	token := getToken(t, student)

	day := func(d int) time.Time { return time.Date(2021, time.June, d, 9, 0, 0, 0, time.UTC) }
	algebra := createTask(t, student.ID, "Algebra homework", task.CategoryHomework, task.PriorityHigh, task.StatusPending, day(15))
	essay := createTask(t, student.ID, "History essay", task.CategoryStudy, task.PriorityMedium, task.StatusCompleted, day(10))
	reading := createTask(t, student.ID, "Biology reading", task.CategoryReading, task.PriorityLow, task.StatusPending, day(20))
	createTask(t, other.ID, "Not yours", task.CategoryOther, task.PriorityLow, task.StatusPending, day(15))

	path := func(status string, from, to time.Time, ordering string) string {
		v := make(url.Values)
		if status != "" {
			v.Add("status", status)
		}
		if !from.IsZero() {
			v.Add("from", from.Format(time.RFC3339))
		}
		if !to.IsZero() {
			v.Add("to", to.Format(time.RFC3339))
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/v1/tasks?" + v.Encode()
	}
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/tasks", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		// owner's tasks only, due date ascending
		{name: "Get all", path: "/v1/tasks", token: token, wantData: marchallList(t, essay, algebra, reading)},
		// filtering
		{name: "status=pending", path: path(task.StatusPending, time.Time{}, time.Time{}, ""), token: token, wantData: marchallList(t, algebra, reading)},
		{name: "status=completed", path: path(task.StatusCompleted, time.Time{}, time.Time{}, ""), token: token, wantData: marchallList(t, essay)},
		{name: "status (unknown)", path: path("lol", time.Time{}, time.Time{}, ""), token: token, wantData: empty},
		{name: "from (inclusive)", path: path("", day(15), time.Time{}, ""), token: token, wantData: marchallList(t, algebra, reading)},
		{name: "to (inclusive)", path: path("", time.Time{}, day(15), ""), token: token, wantData: marchallList(t, essay, algebra)},
		{name: "from - to", path: path("", day(11), day(19), ""), token: token, wantData: marchallList(t, algebra)},
		{name: "from - to (empty)", path: path("", day(25), day(30), ""), token: token, wantData: empty},
		// ordering
		{name: "order by -due_date", path: path("", time.Time{}, time.Time{}, "-due_date"), token: token, wantData: marchallList(t, reading, algebra, essay)},
		{name: "order by title", path: path("", time.Time{}, time.Time{}, "title"), token: token, wantData: marchallList(t, algebra, reading, essay)},
		// unsortable fields are dropped, never interpreted
		{name: "order by unknown field", path: path("", time.Time{}, time.Time{}, `(SELECT password_hash FROM "user" LIMIT 1)`), token: token, wantData: marchallList(t, essay, algebra, reading)},
		// filtering & ordering
		{name: "filtering & ordering", path: path(task.StatusPending, time.Time{}, time.Time{}, "-due_date"), token: token, wantData: marchallList(t, reading, algebra)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_taskApi_retrieve(t *testing.T) {
	app := setup(t)

	student := createUser(t, "Jane Doe", "jane@test.cd", "LolC@t123", true)
	other := createUser(t, "John Doe", "john@test.cd", "LolC@t123", true)
	token := getToken(t, student)

	due := time.Date(2021, time.June, 15, 9, 0, 0, 0, time.UTC)
	algebra := createTask(t, student.ID, "Algebra homework", task.CategoryHomework, task.PriorityHigh, task.StatusPending, due)
	notYours := createTask(t, other.ID, "Not yours", task.CategoryOther, task.PriorityLow, task.StatusPending, due)

	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/tasks/" + algebra.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown task", path: "/v1/tasks/lol", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		// another owner's task is indistinguishable from a missing one
		{name: "foreign task", path: "/v1/tasks/" + notYours.ID, token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "found", path: "/v1/tasks/" + algebra.ID, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, algebra)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_taskApi_update(t *testing.T) {
	app := setup(t)

	student := createUser(t, "Jane Doe", "jane@test.cd", "LolC@t123", true)
	other := createUser(t, "John Doe", "john@test.cd", "LolC@t123", true)
	token := getToken(t, student)

	due := time.Date(2021, time.June, 15, 9, 0, 0, 0, time.UTC)
	algebra := createTask(t, student.ID, "Algebra homework", task.CategoryHomework, task.PriorityHigh, task.StatusPending, due)
	notYours := createTask(t, other.ID, "Not yours", task.CategoryOther, task.PriorityLow, task.StatusPending, due)

	notFound := marchallObj(t, httpErr{Error: "not found"})

	type extraTest struct {
		wantTitle       string
		wantStatus      string
		wantExperience  int
		wantDescription null.String
	}
	tests := []httpTest{
		{name: "Auth required", path: "/v1/tasks/" + algebra.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "unknown task", path: "/v1/tasks/lol", token: token, wantCode: http.StatusNotFound,
			body: marchallObj(t, task.UpdateTask{Title: "lol"}), wantData: notFound,
		},
		{
			name: "foreign task", path: "/v1/tasks/" + notYours.ID, token: token, wantCode: http.StatusNotFound,
			body: marchallObj(t, task.UpdateTask{Title: "lol"}), wantData: notFound,
		},
		{
			name: "invalid status", path: "/v1/tasks/" + algebra.ID, token: token, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, task.UpdateTask{Status: "lol"}),
			wantData: marchallObj(t, map[string]string{"status": "status must be one of [pending completed]"}),
		},
		{
			name: "title updated", path: "/v1/tasks/" + algebra.ID, token: token, wantCode: http.StatusOK,
			body:  marchallObj(t, task.UpdateTask{Title: "Algebra II homework"}),
			extra: extraTest{wantTitle: "Algebra II homework", wantStatus: task.StatusPending, wantExperience: 0},
		},
		{
			name: "completed", path: "/v1/tasks/" + algebra.ID, token: token, wantCode: http.StatusOK,
			body:  marchallObj(t, task.UpdateTask{Status: task.StatusCompleted}),
			extra: extraTest{wantTitle: "Algebra II homework", wantStatus: task.StatusCompleted, wantExperience: task.CompleteExperiencePoints},
		},
		{
			name: "completed task edits do not re-award", path: "/v1/tasks/" + algebra.ID, token: token, wantCode: http.StatusOK,
			body:  marchallObj(t, task.UpdateTask{Description: strPtr("All chapters done")}),
			extra: extraTest{wantTitle: "Algebra II homework", wantStatus: task.StatusCompleted, wantExperience: task.CompleteExperiencePoints, wantDescription: null.StringFrom("All chapters done")},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if extra, ok := tt.extra.(extraTest); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var tsk task.Task
				if err := json.Unmarshal(rec.Body.Bytes(), &tsk); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if tsk.Title != extra.wantTitle {
					t.Errorf("failed! Title = %v; want %v", tsk.Title, extra.wantTitle)
				}
				if tsk.Status != extra.wantStatus {
					t.Errorf("failed! Status = %v; want %v", tsk.Status, extra.wantStatus)
				}
				if extra.wantDescription.Valid && tsk.Description != extra.wantDescription {
					t.Errorf("failed! Description = %v; want %v", tsk.Description, extra.wantDescription)
				}
				if prof := getProfile(t, student.ID); prof.Experience != extra.wantExperience {
					t.Errorf("failed! Experience = %d; want %d", prof.Experience, extra.wantExperience)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_taskApi_destroy(t *testing.T) {
	app := setup(t)

	student := createUser(t, "Jane Doe", "jane@test.cd", "LolC@t123", true)
	other := createUser(t, "John Doe", "john@test.cd", "LolC@t123", true)
	token := getToken(t, student)

	due := time.Date(2021, time.June, 15, 9, 0, 0, 0, time.UTC)
	algebra := createTask(t, student.ID, "Algebra homework", task.CategoryHomework, task.PriorityHigh, task.StatusPending, due)
	notYours := createTask(t, other.ID, "Not yours", task.CategoryOther, task.PriorityLow, task.StatusPending, due)

	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/tasks/" + algebra.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown task", path: "/v1/tasks/lol", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "foreign task", path: "/v1/tasks/" + notYours.ID, token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "deleted", path: "/v1/tasks/" + algebra.ID, token: token, wantCode: http.StatusNoContent},
		{name: "deleted task is gone", path: "/v1/tasks/" + algebra.ID, token: token, wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the foreign task survived the owner mismatch
	if _, err := taskRepo.GetTask(context.Background(), other.ID, notYours.ID); err != nil {
		t.Errorf("GetTask() failed, %v", err)
	}
}

func Test_taskApi_calendar(t *testing.T) {
	app := setup(t)

	student := createUser(t, "Jane Doe", "jane@test.cd", "LolC@t123", true)
	other := createUser(t, "John Doe", "john@test.cd", "LolC@t123", true)
	token := getToken(t, student)

	day := func(d int) time.Time { return time.Date(2021, time.June, d, 9, 0, 0, 0, time.UTC) }
	algebra := createTask(t, student.ID, "Algebra homework", task.CategoryHomework, task.PriorityHigh, task.StatusPending, day(15))
	essay := createTask(t, student.ID, "History essay", task.CategoryStudy, task.PriorityMedium, task.StatusCompleted, day(10))
	reading := createTask(t, student.ID, "Biology reading", task.CategoryReading, task.PriorityLow, task.StatusPending, day(20))
	createTask(t, other.ID, "Not yours", task.CategoryOther, task.PriorityLow, task.StatusPending, day(15))

	event := func(tsk task.Task, bg, border string) task.CalendarEvent {
		return task.CalendarEvent{
			ID:              tsk.ID,
			Title:           tsk.Title,
			Start:           tsk.DueDate,
			BackgroundColor: bg,
			BorderColor:     border,
			TextColor:       "#ffffff",
			ExtendedProps:   task.CalendarEventProps{Category: tsk.Category, Status: tsk.Status},
		}
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/tasks/calendar", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "events colored by priority", path: "/v1/tasks/calendar", token: token, wantCode: http.StatusOK,
			wantData: marchallList(t,
				event(essay, "#f59e0b", "#d97706"),
				event(algebra, "#ef4444", "#dc2626"),
				event(reading, "#22c55e", "#16a34a"),
			),
		},
		{
			name: "filtered events", path: "/v1/tasks/calendar?from=" + url.QueryEscape(day(11).Format(time.RFC3339)), token: token, wantCode: http.StatusOK,
			wantData: marchallList(t,
				event(algebra, "#ef4444", "#dc2626"),
				event(reading, "#22c55e", "#16a34a"),
			),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func strPtr(s string) *string { return &s }
