package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core/user"
)

const pqUniqueViolation = "23505"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return false
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1`
	args := []interface{}{email}

	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		q, inArgs, err := sqlx.In(`SELECT EXISTS (SELECT 1 FROM "user" WHERE email = ? AND id NOT IN (?))`, email, ids)
		if err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
		query = repo.db.Rebind(q)
		args = inArgs
	} else {
		query += ")"
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	usr.Email = strings.ToLower(usr.Email)

	query := `
		INSERT INTO "user" (id, name, email, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, query, usr); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, `SELECT * FROM "user" WHERE email = $1`, strings.ToLower(email)); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
		UPDATE "user"
		SET name = :name, email = :email, is_active = :is_active, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
