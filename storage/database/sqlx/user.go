package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/morris0411/ManavisGradesApp/core"
	"github.com/morris0411/ManavisGradesApp/core/user"
)

const userColumns = "user_id, login_id, password_hash, is_admin, created_at"

type userRepository struct {
	executor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{executor{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var created user.User
	err := sqlx.GetContext(ctx, repo.getExec(exec), &created, `
		INSERT INTO users (login_id, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		usr.LoginID, usr.PasswordHash, usr.IsAdmin, usr.CreatedAt.UTC())
	if isUniqueViolation(err, "users_login_id_key") {
		return user.User{}, user.ErrLoginIDExists
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return created, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := sqlx.GetContext(ctx, repo.getExec(exec), &usr, "SELECT "+userColumns+" FROM users WHERE user_id = $1", id)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByLoginID(ctx context.Context, loginID string, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	err := sqlx.GetContext(ctx, repo.getExec(exec), &usr, "SELECT "+userColumns+" FROM users WHERE login_id = $1", loginID)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	var updated user.User
	err := sqlx.GetContext(ctx, repo.getExec(exec), &updated, `
		UPDATE users SET password_hash = COALESCE($2, password_hash), is_admin = $3
		WHERE user_id = $1
		RETURNING `+userColumns,
		usr.ID, usr.PasswordHash, usr.IsAdmin)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return updated, nil
}
