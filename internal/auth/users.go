package auth

import (
	"context"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/db"
)

// Users is the read side of account management. Accounts and tokens are
// issued elsewhere; this service only resolves ids to users.
type Users struct {
	db db.Querier
}

func NewUsers(db db.Querier) *Users {
	return &Users{db: db}
}

func (u *Users) GetUserByID(ctx context.Context, id string) (User, error) {
	row := u.db.QueryRow(ctx, `
		SELECT id, email, username, full_name, created_at
		FROM users WHERE id = $1
	`, id)

	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.FullName, &user.CreatedAt)
	if db.IsNoRows(err) {
		return User{}, apperr.NotFound(apperr.CodeNotFound, "user %s not found", id)
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}
