package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates the read-only user lookup
func NewUserRepository(db *sqlx.DB, logger observability.Logger, tracer observability.StartSpanFunc) interfaces.UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger.WithPrefix("user_repository"), tracer, BaseRepositoryConfig{}),
	}
}

func (r *userRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.execute(ctx, "UserRepository.GetUser", func(ctx context.Context) error {
		query := `SELECT id, name, email, role_id, group_id, level_id, status, created_at FROM users WHERE id = $1`
		if err := r.db.GetContext(ctx, &u, query, id); err != nil {
			return notFoundOr(err, "user", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}
