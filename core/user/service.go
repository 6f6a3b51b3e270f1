package user

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core"
)

var (
	makeTokenFunc = MakeToken // mockable

	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	// ProfileInitializer creates the progress profile that goes one-to-one
	// with every account.
	ProfileInitializer interface {
		EnsureProfile(ctx context.Context, userID string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		profiles ProfileInitializer
	}
)

func NewService(repo Repository, mailSvc core.EmailService, profiles ProfileInitializer) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		profiles: profiles,
	}
}

func (svc *Service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create registers a new User and its progress profile, then emails a welcome message.
// The profile insert is a separate round-trip; if it fails the account remains.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	if err := svc.profiles.EnsureProfile(ctx, usr.ID); err != nil {
		return usr, errors.Wrap(err, "creating profile")
	}

	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset emails a one-time reset link to the account's address.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err := verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err := svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}

func (svc *Service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: struct{ Name string }{usr.Name},
	})
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	token, err := makeTokenFunc(usr)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	q := make(url.Values)
	q.Set("uid", EncodeUID(usr))
	q.Set("token", token)
	resetURL := fmt.Sprintf("%s/password-reset/confirm?%s", core.Conf.FrontendBaseURL, q.Encode())

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct{ Name, URL string }{usr.Name, resetURL},
	})
	return nil
}
