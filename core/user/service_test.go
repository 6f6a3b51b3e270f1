package user

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core"
)

type fakeRepository struct {
	usersByEmail map[string]User
}

var _ Repository = (*fakeRepository)(nil) // interface compliance check

func (repo *fakeRepository) CheckEmailUniqueness(_ context.Context, email string, _ ...User) error {
	if _, ok := repo.usersByEmail[email]; ok {
		return ErrEmailExists
	}
	return nil
}

func (repo *fakeRepository) CreateUser(_ context.Context, usr User) (User, error) {
	repo.usersByEmail[usr.Email] = usr
	return usr, nil
}

func (repo *fakeRepository) GetUserByID(_ context.Context, id string) (User, error) {
	for _, usr := range repo.usersByEmail {
		if usr.ID == id {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (repo *fakeRepository) GetUserByEmail(_ context.Context, email string) (User, error) {
	if usr, ok := repo.usersByEmail[email]; ok {
		return usr, nil
	}
	return User{}, ErrNotFound
}

func (repo *fakeRepository) UpdateUser(_ context.Context, usr User) (User, error) {
	repo.usersByEmail[usr.Email] = usr
	return usr, nil
}

type fakeProfiles struct{}

func (fakeProfiles) EnsureProfile(context.Context, string) error { return nil }

type fakeMailService struct {
	sent []*core.EmailMessage
}

var _ core.EmailService = (*fakeMailService)(nil)

func (svc *fakeMailService) SendMessages(messages ...*core.EmailMessage) {
	svc.sent = append(svc.sent, messages...)
}

func Test_Service_RequestPasswordReset(t *testing.T) {
	ctx := context.Background()
	usr := User{ID: "b61e88b6-4e40-4ff2-9a1d-0bd885b063bb", Name: "Jane Doe", Email: "jane@test.cd"}

	setup := func() (*Service, *fakeMailService) {
		repo := &fakeRepository{usersByEmail: map[string]User{usr.Email: usr}}
		mailSvc := &fakeMailService{}
		return NewService(repo, mailSvc, fakeProfiles{}), mailSvc
	}

	t.Run("unknown email", func(t *testing.T) {
		svc, mailSvc := setup()

		err := svc.RequestPasswordReset(ctx, "nobody@test.cd")
		if errors.Cause(err) != ErrNotFound {
			t.Errorf("RequestPasswordReset() error = %v; want %v", err, ErrNotFound)
		}
		if len(mailSvc.sent) != 0 {
			t.Errorf("len(sent) = %d; want 0", len(mailSvc.sent))
		}
	})

	t.Run("sends the reset link", func(t *testing.T) {
		svc, mailSvc := setup()

		if err := svc.RequestPasswordReset(ctx, usr.Email); err != nil {
			t.Fatalf("RequestPasswordReset() failed, %v", err)
		}
		if len(mailSvc.sent) != 1 {
			t.Fatalf("len(sent) = %d; want 1", len(mailSvc.sent))
		}

		msg := mailSvc.sent[0]
		if msg.Subject != "Password Reset" {
			t.Errorf("Subject = %q; want %q", msg.Subject, "Password Reset")
		}
		if len(msg.To) != 1 || msg.To[0].Address != usr.Email {
			t.Errorf("To = %v; want %v", msg.To, usr.Email)
		}
		data, ok := msg.TemplateData.(struct{ Name, URL string })
		if !ok {
			t.Fatalf("TemplateData is %T", msg.TemplateData)
		}
		if !strings.Contains(data.URL, "/password-reset/confirm?token=") || !strings.Contains(data.URL, "&uid=") {
			t.Errorf("URL = %q; want a reset link with token and uid", data.URL)
		}
	})

	t.Run("token failure is surfaced, nothing sent", func(t *testing.T) {
		svc, mailSvc := setup()

		makeTokenFunc = func(User) (string, error) { return "", errors.New("signing failed") }
		defer func() { makeTokenFunc = MakeToken }()

		if err := svc.RequestPasswordReset(ctx, usr.Email); err == nil {
			t.Error("RequestPasswordReset() error = nil; want an error")
		}
		if len(mailSvc.sent) != 0 {
			t.Errorf("len(sent) = %d; want 0", len(mailSvc.sent))
		}
	})
}
