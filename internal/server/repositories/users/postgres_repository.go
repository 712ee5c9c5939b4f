package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/dbx"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, claim models.IdentityClaim) (*models.User, error) {

	query :=
		`INSERT INTO users (email, name, picture)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name, picture = EXCLUDED.picture, last_login_at = now()
		 RETURNING created_at, last_login_at
		 `

	user := &models.User{Email: claim.Email, Name: claim.Name, Picture: claim.Picture}
	err := r.db.QueryRowContext(ctx, query, claim.Email, claim.Name, claim.Picture).
		Scan(&user.CreatedAt, &user.LastLoginAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT email, name, picture, created_at, last_login_at FROM users
		 WHERE email = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.Email, &user.Name, &user.Picture, &user.CreatedAt, &user.LastLoginAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
