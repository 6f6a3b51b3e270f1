package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Robzoly/StudyPlanner/core/progress"
)

type progressRepository struct {
	profiles         *profileTable
	achievements     *achievementTable
	userAchievements *userAchievementTable
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{
		profiles:         db.profile,
		achievements:     db.achievement,
		userAchievements: db.userAchievement,
	}
}

func (repo *progressRepository) CreateProfile(_ context.Context, prof progress.Profile) (progress.Profile, error) {
	repo.profiles.Lock()
	defer repo.profiles.Unlock()

	if _, ok := repo.profiles.table[prof.UserID]; ok {
		return progress.Profile{}, progress.ErrProfileExists
	}
	repo.profiles.table[prof.UserID] = &prof
	return prof, nil
}

func (repo *progressRepository) GetProfile(_ context.Context, userID string) (progress.Profile, error) {
	repo.profiles.RLock()
	defer repo.profiles.RUnlock()

	if prof, ok := repo.profiles.table[userID]; ok {
		return *prof, nil
	}
	return progress.Profile{}, progress.ErrProfileNotFound
}

func (repo *progressRepository) IncrementExperience(_ context.Context, userID string, points int) (progress.Profile, error) {
	repo.profiles.Lock()
	defer repo.profiles.Unlock()

	prof, ok := repo.profiles.table[userID]
	if !ok {
		return progress.Profile{}, progress.ErrProfileNotFound
	}
	prof.Experience += points
	prof.UpdatedAt = time.Now().UTC()
	return *prof, nil
}

func (repo *progressRepository) UpdateStreak(_ context.Context, userID string, streak int, activeDate time.Time) (progress.Profile, error) {
	repo.profiles.Lock()
	defer repo.profiles.Unlock()

	prof, ok := repo.profiles.table[userID]
	if !ok {
		return progress.Profile{}, progress.ErrProfileNotFound
	}
	prof.StreakCount = streak
	prof.LastActiveDate = activeDate
	prof.UpdatedAt = time.Now().UTC()
	return *prof, nil
}

// CreateAchievement seeds reference data; in production this is done by migration.
func (repo *progressRepository) CreateAchievement(_ context.Context, ach progress.Achievement) (progress.Achievement, error) {
	repo.achievements.Lock()
	defer repo.achievements.Unlock()

	ach.ID = uuid.New().String()
	ach.CreatedAt = time.Now().UTC()
	repo.achievements.table[ach.ID] = &ach
	return ach, nil
}

func (repo *progressRepository) QueryAchievements(_ context.Context) ([]progress.Achievement, error) {
	repo.achievements.RLock()
	defer repo.achievements.RUnlock()

	achs := make([]progress.Achievement, 0, len(repo.achievements.table))
	for _, ach := range repo.achievements.table {
		achs = append(achs, *ach)
	}
	sort.SliceStable(achs, func(i, j int) bool { return achs[i].Points < achs[j].Points })
	return achs, nil
}

func (repo *progressRepository) GetAchievementByCode(_ context.Context, code string) (progress.Achievement, error) {
	repo.achievements.RLock()
	defer repo.achievements.RUnlock()

	for _, ach := range repo.achievements.table {
		if ach.Code == code {
			return *ach, nil
		}
	}
	return progress.Achievement{}, progress.ErrAchievementNotFound
}

func (repo *progressRepository) QueryUserAchievements(_ context.Context, userID string) ([]progress.UserAchievement, error) {
	repo.userAchievements.RLock()
	defer repo.userAchievements.RUnlock()

	uas := make([]progress.UserAchievement, 0)
	for _, ua := range repo.userAchievements.table {
		if ua.UserID != userID {
			continue
		}
		res := *ua
		repo.achievements.RLock()
		if ach, ok := repo.achievements.table[ua.AchievementID]; ok {
			embedded := *ach
			res.Achievement = &embedded
		}
		repo.achievements.RUnlock()
		uas = append(uas, res)
	}
	sort.SliceStable(uas, func(i, j int) bool { return uas[i].UnlockedAt.After(uas[j].UnlockedAt) })
	return uas, nil
}

func (repo *progressRepository) CreateUserAchievement(_ context.Context, userID, achievementID string) (progress.UserAchievement, error) {
	repo.userAchievements.Lock()
	defer repo.userAchievements.Unlock()

	// (user, achievement) uniqueness constraint
	for _, ua := range repo.userAchievements.table {
		if ua.UserID == userID && ua.AchievementID == achievementID {
			return progress.UserAchievement{}, progress.ErrAlreadyUnlocked
		}
	}

	now := time.Now().UTC()
	ua := progress.UserAchievement{
		ID:            uuid.New().String(),
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    now,
		CreatedAt:     now,
	}
	repo.userAchievements.table[ua.ID] = &ua
	return ua, nil
}
