package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core/progress"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to notFoundErr
func (repo progressRepository) trapNoRowsErr(err error, notFoundErr error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFoundErr
	}
	return errors.Wrap(err, msg)
}

func (repo progressRepository) CreateProfile(ctx context.Context, prof progress.Profile) (progress.Profile, error) {
	query := `
		INSERT INTO profile (user_id, experience, streak_count, last_active_date, updated_at)
		VALUES (:user_id, :experience, :streak_count, :last_active_date, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, prof); err != nil {
		if isUniqueViolation(err) {
			return progress.Profile{}, progress.ErrProfileExists
		}
		return progress.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return prof, nil
}

func (repo progressRepository) GetProfile(ctx context.Context, userID string) (progress.Profile, error) {
	var prof progress.Profile
	if err := repo.db.GetContext(ctx, &prof, `SELECT * FROM profile WHERE user_id = $1`, userID); err != nil {
		return progress.Profile{}, repo.trapNoRowsErr(err, progress.ErrProfileNotFound, "finding profile")
	}
	return prof, nil
}

// IncrementExperience adds points atomically on the storage side so
// concurrent awards cannot lose updates.
func (repo progressRepository) IncrementExperience(ctx context.Context, userID string, points int) (progress.Profile, error) {
	query := `
		UPDATE profile
		SET experience = experience + $2, updated_at = $3
		WHERE user_id = $1
		RETURNING *`
	var prof progress.Profile
	if err := repo.db.GetContext(ctx, &prof, query, userID, points, time.Now().UTC()); err != nil {
		return progress.Profile{}, repo.trapNoRowsErr(err, progress.ErrProfileNotFound, "incrementing experience")
	}
	return prof, nil
}

func (repo progressRepository) UpdateStreak(ctx context.Context, userID string, streak int, activeDate time.Time) (progress.Profile, error) {
	query := `
		UPDATE profile
		SET streak_count = $2, last_active_date = $3, updated_at = $4
		WHERE user_id = $1
		RETURNING *`
	var prof progress.Profile
	if err := repo.db.GetContext(ctx, &prof, query, userID, streak, activeDate, time.Now().UTC()); err != nil {
		return progress.Profile{}, repo.trapNoRowsErr(err, progress.ErrProfileNotFound, "updating streak")
	}
	return prof, nil
}

func (repo progressRepository) QueryAchievements(ctx context.Context) ([]progress.Achievement, error) {
	achs := make([]progress.Achievement, 0)
	if err := repo.db.SelectContext(ctx, &achs, `SELECT * FROM achievement ORDER BY points ASC`); err != nil {
		return nil, errors.Wrap(err, "querying achievements")
	}
	return achs, nil
}

func (repo progressRepository) GetAchievementByCode(ctx context.Context, code string) (progress.Achievement, error) {
	var ach progress.Achievement
	if err := repo.db.GetContext(ctx, &ach, `SELECT * FROM achievement WHERE code = $1`, code); err != nil {
		return progress.Achievement{}, repo.trapNoRowsErr(err, progress.ErrAchievementNotFound, "finding achievement")
	}
	return ach, nil
}

// userAchievementRow flattens the user_achievement/achievement join;
// "achievement."-prefixed columns scan into the embedded Achievement.
type userAchievementRow struct {
	ID            string               `db:"id"`
	UserID        string               `db:"user_id"`
	AchievementID string               `db:"achievement_id"`
	UnlockedAt    time.Time            `db:"unlocked_at"`
	CreatedAt     time.Time            `db:"created_at"`
	Achievement   progress.Achievement `db:"achievement"`
}

func (repo progressRepository) QueryUserAchievements(ctx context.Context, userID string) ([]progress.UserAchievement, error) {
	query := `
		SELECT ua.id, ua.user_id, ua.achievement_id, ua.unlocked_at, ua.created_at,
			a.id AS "achievement.id", a.code AS "achievement.code", a.title AS "achievement.title",
			a.description AS "achievement.description", a.points AS "achievement.points",
			a.icon AS "achievement.icon", a.category AS "achievement.category",
			a.requirements AS "achievement.requirements", a.created_at AS "achievement.created_at"
		FROM user_achievement ua
		JOIN achievement a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1
		ORDER BY ua.unlocked_at DESC`

	rows := make([]userAchievementRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "querying user achievements")
	}

	uas := make([]progress.UserAchievement, 0, len(rows))
	for _, row := range rows {
		ach := row.Achievement
		uas = append(uas, progress.UserAchievement{
			ID:            row.ID,
			UserID:        row.UserID,
			AchievementID: row.AchievementID,
			UnlockedAt:    row.UnlockedAt,
			CreatedAt:     row.CreatedAt,
			Achievement:   &ach,
		})
	}
	return uas, nil
}

func (repo progressRepository) CreateUserAchievement(ctx context.Context, userID, achievementID string) (progress.UserAchievement, error) {
	now := time.Now().UTC()
	ua := progress.UserAchievement{
		ID:            uuid.New().String(),
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    now,
		CreatedAt:     now,
	}

	query := `
		INSERT INTO user_achievement (id, user_id, achievement_id, unlocked_at, created_at)
		VALUES (:id, :user_id, :achievement_id, :unlocked_at, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, ua); err != nil {
		if isUniqueViolation(err) {
			return progress.UserAchievement{}, progress.ErrAlreadyUnlocked
		}
		return progress.UserAchievement{}, errors.Wrap(err, "inserting user achievement")
	}
	return ua, nil
}
