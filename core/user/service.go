package user

import (
	"context"
	"errors"
	"time"

	"github.com/morris0411/ManavisGradesApp/core"
)

var (
	// errors
	ErrNotFound       = errors.New("ユーザーが見つかりません")
	ErrLoginIDExists  = errors.New("このログインIDは既に使用されています")
	ErrBadCredentials = errors.New("ログインIDまたはパスワードが正しくありません")

	nowFunc = time.Now
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (User, error)
		GetUserByLoginID(ctx context.Context, loginID string, exec ...core.DBExecutor) (User, error)
		// UpdateUser stores the password hash and admin flag of usr.
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(loginID string) error {
	_, err := svc.repo.GetUserByLoginID(context.Background(), loginID)
	switch {
	case err == nil:
		return core.NewValidationError(ErrLoginIDExists, core.FieldError{Field: "login_id", Error: ErrLoginIDExists.Error()})
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		LoginID:   nu.LoginID,
		IsAdmin:   nu.IsAdmin,
		CreatedAt: nowFunc().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByLoginID(ctx context.Context, loginID string) (User, error) {
	return svc.repo.GetUserByLoginID(ctx, core.CleanString(loginID))
}

// Authenticate returns the user owning loginID if pwd matches. Unknown ids and wrong
// passwords both yield ErrBadCredentials.
func (svc *Service) Authenticate(ctx context.Context, loginID, pwd string) (User, error) {
	usr, err := svc.GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrBadCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrBadCredentials
	}
	return usr, nil
}

// SetPassword replaces the password of an existing user; promote also grants admin rights.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string, promote bool) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, err
	}
	if promote {
		usr.IsAdmin = true
	}
	return svc.repo.UpdateUser(ctx, usr)
}
