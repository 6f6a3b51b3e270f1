package progress

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Profile tracks a user's gamified progress. One row per account, created at
// registration and never deleted.
type Profile struct {
	UserID         string    `json:"user_id" db:"user_id"`
	Experience     int       `json:"experience" db:"experience"`
	StreakCount    int       `json:"streak_count" db:"streak_count"`
	LastActiveDate time.Time `json:"last_active_date" db:"last_active_date"` // day granularity
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`             // UTC
}

// Icon names; resolved to glyphs by the frontend.
const (
	IconStar       = "Star"
	IconAward      = "Award"
	IconSun        = "Sun"
	IconFlame      = "Flame"
	IconFolderTree = "FolderTree"
	IconListTodo   = "ListTodo"
	IconTrophy     = "Trophy"
	IconCalendar   = "Calendar"
)

// Achievement is static reference data, seeded by migration. Requirements is
// a declarative descriptor; unlocking is driven by call sites, the engine
// does not evaluate it.
type Achievement struct {
	ID           string         `json:"id" db:"id"`
	Code         string         `json:"code" db:"code"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description" db:"description"`
	Points       int            `json:"points" db:"points"`
	Icon         string         `json:"icon" db:"icon"`
	Category     string         `json:"category" db:"category"`
	Requirements types.JSONText `json:"requirements" db:"requirements"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// UserAchievement records a one-time unlock; (user, achievement) is unique.
type UserAchievement struct {
	ID            string       `json:"id" db:"id"`
	UserID        string       `json:"user_id" db:"user_id"`
	AchievementID string       `json:"achievement_id" db:"achievement_id"`
	UnlockedAt    time.Time    `json:"unlocked_at" db:"unlocked_at"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	Achievement   *Achievement `json:"achievement,omitempty" db:"-"`
}
