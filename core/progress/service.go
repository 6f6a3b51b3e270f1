package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrProfileNotFound     = errors.New("profile not found")
	ErrProfileExists       = errors.New("profile already exists")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrAlreadyUnlocked     = errors.New("achievement already unlocked")
	ErrInvalidPoints       = errors.New("points must be a positive integer")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfile(ctx context.Context, userID string) (Profile, error)
		// IncrementExperience atomically adds points to the stored total
		// (experience = experience + points). It does not touch the active
		// date; that is the streak's bookkeeping.
		IncrementExperience(ctx context.Context, userID string, points int) (Profile, error)
		UpdateStreak(ctx context.Context, userID string, streak int, activeDate time.Time) (Profile, error)
		// QueryAchievements returns all achievements ordered ascending by points.
		QueryAchievements(ctx context.Context) ([]Achievement, error)
		GetAchievementByCode(ctx context.Context, code string) (Achievement, error)
		// QueryUserAchievements returns a user's unlocks, newest first, with
		// the Achievement embedded.
		QueryUserAchievements(ctx context.Context, userID string) ([]UserAchievement, error)
		// CreateUserAchievement returns ErrAlreadyUnlocked when the
		// (user, achievement) uniqueness constraint rejects the insert.
		CreateUserAchievement(ctx context.Context, userID, achievementID string) (UserAchievement, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureProfile creates the progress profile for a user if it does not exist yet.
func (svc *Service) EnsureProfile(ctx context.Context, userID string) error {
	prof := Profile{
		UserID:         userID,
		LastActiveDate: today(),
		UpdatedAt:      nowFunc().UTC(),
	}
	if _, err := svc.repo.CreateProfile(ctx, prof); err != nil {
		if errors.Cause(err) == ErrProfileExists {
			return nil
		}
		return errors.Wrap(err, "creating profile")
	}
	return nil
}

func (svc *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	return svc.repo.GetProfile(ctx, userID)
}

// AwardExperience adds points to the user's experience via a storage-side
// atomic increment.
func (svc *Service) AwardExperience(ctx context.Context, userID string, points int) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	if _, err := svc.repo.IncrementExperience(ctx, userID, points); err != nil {
		return errors.Wrap(err, "incrementing experience")
	}
	return nil
}

// RefreshStreak recomputes the consecutive-day streak from the elapsed whole
// calendar days since the last active date:
//   1 day  -> streak + 1
//   > 1    -> streak reset to 1 (today still counts as active)
//   0 days -> streak unchanged (no same-day double-counting)
// The last-active-date is restamped unconditionally.
func (svc *Service) RefreshStreak(ctx context.Context, userID string) error {
	prof, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}

	streak := prof.StreakCount
	switch elapsed := elapsedDays(prof.LastActiveDate, today()); {
	case elapsed == 1:
		streak++
	case elapsed > 1:
		streak = 1
	}

	if _, err := svc.repo.UpdateStreak(ctx, userID, streak, today()); err != nil {
		return errors.Wrap(err, "updating streak")
	}
	return nil
}

func (svc *Service) QueryAchievements(ctx context.Context) ([]Achievement, error) {
	return svc.repo.QueryAchievements(ctx)
}

func (svc *Service) QueryUserAchievements(ctx context.Context, userID string) ([]UserAchievement, error) {
	return svc.repo.QueryUserAchievements(ctx, userID)
}

// UnlockAchievement records a one-time unlock. A duplicate unlock attempt is
// a success-no-op: the uniqueness constraint dedupes and the rejection is not
// surfaced as an error.
func (svc *Service) UnlockAchievement(ctx context.Context, userID, achievementID string) error {
	if _, err := svc.repo.CreateUserAchievement(ctx, userID, achievementID); err != nil {
		if errors.Cause(err) == ErrAlreadyUnlocked {
			return nil
		}
		return errors.Wrap(err, "unlocking achievement")
	}
	return nil
}

func (svc *Service) UnlockAchievementByCode(ctx context.Context, userID, code string) error {
	ach, err := svc.repo.GetAchievementByCode(ctx, code)
	if err != nil {
		return errors.Wrap(err, "finding achievement by code")
	}
	return svc.UnlockAchievement(ctx, userID, ach.ID)
}

// today truncates the current time to UTC day granularity.
func today() time.Time {
	now := nowFunc().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// elapsedDays counts whole calendar days between two dates (UTC), so
// "yesterday 23:00" to "today 01:00" is 1 day.
func elapsedDays(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
