package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx/types"

	. "github.com/Robzoly/StudyPlanner/apps/api/echo"
	"github.com/Robzoly/StudyPlanner/core"
	"github.com/Robzoly/StudyPlanner/core/progress"
	"github.com/Robzoly/StudyPlanner/core/task"
	"github.com/Robzoly/StudyPlanner/core/user"
	emailsvc "github.com/Robzoly/StudyPlanner/services/email"
	dummydb "github.com/Robzoly/StudyPlanner/storage/database/dummy"
)

var (
	usrRepo      user.Repository
	taskRepo     task.Repository
	progressRepo progress.Repository
	progressSvc  *progress.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	taskRepo = dummydb.NewTaskRepository(db)
	repo := dummydb.NewProgressRepository(db)
	progressRepo = repo
	seedAchievements(t, repo)

	// set up services
	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleServiceMock()
	progressSvc = progress.NewService(progressRepo)
	usrSvc := user.NewService(usrRepo, mailSvc, progressSvc)
	taskSvc := task.NewService(taskRepo, progressSvc, logger)

	sessions := user.NewSessionBroker()
	sessions.Resolve()

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			SignalShutdown: func() {},
			UserSvc:        usrSvc,
			TaskSvc:        taskSvc,
			ProgressSvc:    progressSvc,
			Sessions:       sessions,
		},
	)
}

func seedAchievements(t *testing.T, repo interface {
	CreateAchievement(ctx context.Context, ach progress.Achievement) (progress.Achievement, error)
}) {
	t.Helper()

	achs := []progress.Achievement{
		{Code: "first-task", Title: "Getting Started", Description: "Create your first task", Points: 10, Icon: progress.IconStar, Category: "tasks", Requirements: types.JSONText(`{"tasks_created": 1}`)},
		{Code: "task-streak-3", Title: "On a Roll", Description: "Stay active 3 days in a row", Points: 20, Icon: progress.IconFlame, Category: "streaks", Requirements: types.JSONText(`{"streak_count": 3}`)},
		{Code: "experience-100", Title: "Centurion", Description: "Earn 100 experience points", Points: 30, Icon: progress.IconAward, Category: "experience", Requirements: types.JSONText(`{"experience": 100}`)},
	}
	for _, ach := range achs {
		if _, err := repo.CreateAchievement(context.Background(), ach); err != nil {
			t.Fatalf("CreateAchievement() failed, %v", err)
		}
	}
}

func createUser(t *testing.T, name, email, pwd string, active bool) user.User {
	t.Helper()

	usr := user.User{
		Name:     name,
		Email:    email,
		IsActive: active,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed, %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed, %v", err)
	}
	if err = progressSvc.EnsureProfile(context.Background(), usr.ID); err != nil {
		t.Fatalf("EnsureProfile() failed, %v", err)
	}
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

// jsonBytesEqual compares the JSON in b1 to that in b2.
// List comparisons are order-sensitive; ordered responses are part of the contract.
func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	t.Helper()

	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
