package dummydb

import (
	"sync"

	"github.com/Robzoly/StudyPlanner/core/progress"
	"github.com/Robzoly/StudyPlanner/core/task"
	"github.com/Robzoly/StudyPlanner/core/user"
)

type (
	DB struct {
		user            *userTable
		task            *taskTable
		profile         *profileTable
		achievement     *achievementTable
		userAchievement *userAchievementTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	taskTable struct {
		sync.RWMutex
		table map[string]*task.Task
	}

	profileTable struct {
		sync.RWMutex
		table map[string]*progress.Profile // keyed by user ID
	}

	achievementTable struct {
		sync.RWMutex
		table map[string]*progress.Achievement
	}

	userAchievementTable struct {
		sync.RWMutex
		table map[string]*progress.UserAchievement
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:            &userTable{table: make(map[string]*user.User)},
		task:            &taskTable{table: make(map[string]*task.Task)},
		profile:         &profileTable{table: make(map[string]*progress.Profile)},
		achievement:     &achievementTable{table: make(map[string]*progress.Achievement)},
		userAchievement: &userAchievementTable{table: make(map[string]*progress.UserAchievement)},
	}
	return db, nil
}
