package postgres

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
)

type directoryRepository struct {
	*BaseRepository
}

// NewDirectoryRepository creates the organizational metadata repository
func NewDirectoryRepository(db *sqlx.DB, logger observability.Logger, tracer observability.StartSpanFunc) interfaces.DirectoryRepository {
	return &directoryRepository{
		BaseRepository: NewBaseRepository(db, logger.WithPrefix("directory_repository"), tracer, BaseRepositoryConfig{}),
	}
}

func (r *directoryRepository) CreateGroup(ctx context.Context, g *models.Group) error {
	return r.execute(ctx, "DirectoryRepository.CreateGroup", func(ctx context.Context) error {
		query := `INSERT INTO groups (group_name, description) VALUES ($1, $2) RETURNING group_id`
		if err := r.db.QueryRowContext(ctx, query, g.GroupName, g.Description).Scan(&g.ID); err != nil {
			return apperrors.Persistence("failed to create group", err)
		}
		return nil
	})
}

func (r *directoryRepository) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	err := r.execute(ctx, "DirectoryRepository.GetGroup", func(ctx context.Context) error {
		query := `SELECT * FROM groups WHERE group_id = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &g, query, id); err != nil {
			return notFoundOr(err, "group", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *directoryRepository) ListGroups(ctx context.Context, page, pageSize int) ([]models.Group, int, error) {
	var groups []models.Group
	var total int
	err := r.execute(ctx, "DirectoryRepository.ListGroups", func(ctx context.Context) error {
		limit, offset := pageBounds(page, pageSize)
		query := `SELECT * FROM groups WHERE deleted_at IS NULL ORDER BY group_id LIMIT $1 OFFSET $2`
		if err := r.db.SelectContext(ctx, &groups, query, limit, offset); err != nil {
			return apperrors.Persistence("failed to list groups", err)
		}
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM groups WHERE deleted_at IS NULL`); err != nil {
			return apperrors.Persistence("failed to count groups", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

func (r *directoryRepository) SearchGroups(ctx context.Context, query string) ([]models.Group, error) {
	var groups []models.Group
	err := r.execute(ctx, "DirectoryRepository.SearchGroups", func(ctx context.Context) error {
		pattern := "%" + query + "%"
		q := `SELECT * FROM groups WHERE deleted_at IS NULL AND group_name ILIKE $1 ORDER BY group_id`
		if err := r.db.SelectContext(ctx, &groups, q, pattern); err != nil {
			return apperrors.Persistence("failed to search groups", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *directoryRepository) SoftDeleteGroup(ctx context.Context, id int64) error {
	return r.softDelete(ctx, "DirectoryRepository.SoftDeleteGroup", "groups", "group_id", "group", id)
}

func (r *directoryRepository) CreateLevel(ctx context.Context, l *models.Level) error {
	return r.execute(ctx, "DirectoryRepository.CreateLevel", func(ctx context.Context) error {
		query := `INSERT INTO group_levels (name) VALUES ($1) RETURNING id`
		if err := r.db.QueryRowContext(ctx, query, l.Name).Scan(&l.ID); err != nil {
			return apperrors.Persistence("failed to create level", err)
		}
		return nil
	})
}

func (r *directoryRepository) ListLevels(ctx context.Context, page, pageSize int) ([]models.Level, int, error) {
	var levels []models.Level
	total, err := r.listNamed(ctx, "DirectoryRepository.ListLevels", "group_levels", page, pageSize, &levels)
	if err != nil {
		return nil, 0, err
	}
	return levels, total, nil
}

func (r *directoryRepository) CreateActionType(ctx context.Context, a *models.ActionType) error {
	return r.execute(ctx, "DirectoryRepository.CreateActionType", func(ctx context.Context) error {
		query := `INSERT INTO action_types (name) VALUES ($1) RETURNING id`
		if err := r.db.QueryRowContext(ctx, query, a.Name).Scan(&a.ID); err != nil {
			return apperrors.Persistence("failed to create action type", err)
		}
		return nil
	})
}

func (r *directoryRepository) ListActionTypes(ctx context.Context, page, pageSize int) ([]models.ActionType, int, error) {
	var types []models.ActionType
	total, err := r.listNamed(ctx, "DirectoryRepository.ListActionTypes", "action_types", page, pageSize, &types)
	if err != nil {
		return nil, 0, err
	}
	return types, total, nil
}

func (r *directoryRepository) CreateFieldType(ctx context.Context, f *models.FieldType) error {
	return r.execute(ctx, "DirectoryRepository.CreateFieldType", func(ctx context.Context) error {
		query := `INSERT INTO field_types (name) VALUES ($1) RETURNING id`
		if err := r.db.QueryRowContext(ctx, query, f.Name).Scan(&f.ID); err != nil {
			return apperrors.Persistence("failed to create field type", err)
		}
		return nil
	})
}

func (r *directoryRepository) ListFieldTypes(ctx context.Context, page, pageSize int) ([]models.FieldType, int, error) {
	var types []models.FieldType
	total, err := r.listNamed(ctx, "DirectoryRepository.ListFieldTypes", "field_types", page, pageSize, &types)
	if err != nil {
		return nil, 0, err
	}
	return types, total, nil
}

func (r *directoryRepository) CreateLockup(ctx context.Context, l *models.Lockup) error {
	return r.execute(ctx, "DirectoryRepository.CreateLockup", func(ctx context.Context) error {
		if l.Status == "" {
			l.Status = models.LockupStatusActive
		}
		query := `
			INSERT INTO lockups (name, display_name, table_name, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id`
		err := r.db.QueryRowContext(ctx, query, l.Name, l.DisplayName, l.TableName, l.Status).Scan(&l.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict("a lockup already uses table " + l.TableName)
			}
			return apperrors.Persistence("failed to create lockup", err)
		}
		return nil
	})
}

func (r *directoryRepository) GetLockup(ctx context.Context, id int64) (*models.Lockup, error) {
	var l models.Lockup
	err := r.execute(ctx, "DirectoryRepository.GetLockup", func(ctx context.Context) error {
		query := `SELECT * FROM lockups WHERE id = $1 AND deleted_at IS NULL`
		if err := r.db.GetContext(ctx, &l, query, id); err != nil {
			return notFoundOr(err, "lockup", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *directoryRepository) ListLockups(ctx context.Context, page, pageSize int) ([]models.Lockup, int, error) {
	var lockups []models.Lockup
	var total int
	err := r.execute(ctx, "DirectoryRepository.ListLockups", func(ctx context.Context) error {
		limit, offset := pageBounds(page, pageSize)
		query := `SELECT * FROM lockups WHERE deleted_at IS NULL ORDER BY id LIMIT $1 OFFSET $2`
		if err := r.db.SelectContext(ctx, &lockups, query, limit, offset); err != nil {
			return apperrors.Persistence("failed to list lockups", err)
		}
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM lockups WHERE deleted_at IS NULL`); err != nil {
			return apperrors.Persistence("failed to count lockups", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return lockups, total, nil
}

func (r *directoryRepository) SearchLockups(ctx context.Context, query string) ([]models.Lockup, error) {
	var lockups []models.Lockup
	err := r.execute(ctx, "DirectoryRepository.SearchLockups", func(ctx context.Context) error {
		pattern := "%" + query + "%"
		q := `
			SELECT * FROM lockups
			WHERE deleted_at IS NULL AND (name ILIKE $1 OR display_name ILIKE $1)
			ORDER BY id`
		if err := r.db.SelectContext(ctx, &lockups, q, pattern); err != nil {
			return apperrors.Persistence("failed to search lockups", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lockups, nil
}

func (r *directoryRepository) SoftDeleteLockup(ctx context.Context, id int64) error {
	return r.softDelete(ctx, "DirectoryRepository.SoftDeleteLockup", "lockups", "id", "lockup", id)
}

// lockup entry operations run against provisioned lkt_ tables; the table
// name is re-validated here because it crosses an SQL identifier boundary
var lockupTablePattern = regexp.MustCompile(`^lkt_[a-z0-9_]+$`)

func (r *directoryRepository) CreateLockupEntry(ctx context.Context, tableName, name string) (int64, error) {
	if !lockupTablePattern.MatchString(tableName) {
		return 0, apperrors.Validation(fmt.Sprintf("invalid lockup table %q", tableName), nil)
	}
	var id int64
	err := r.execute(ctx, "DirectoryRepository.CreateLockupEntry", func(ctx context.Context) error {
		query := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id`, tableName)
		if err := r.db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
			return apperrors.Persistence("failed to create lockup entry", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *directoryRepository) ListLockupEntries(ctx context.Context, tableName string) ([]models.LockupEntry, error) {
	if !lockupTablePattern.MatchString(tableName) {
		return nil, apperrors.Validation(fmt.Sprintf("invalid lockup table %q", tableName), nil)
	}
	var entries []models.LockupEntry
	err := r.execute(ctx, "DirectoryRepository.ListLockupEntries", func(ctx context.Context) error {
		query := fmt.Sprintf(`SELECT id, name FROM %s WHERE is_deleted = 0 ORDER BY id`, tableName)
		if err := r.db.SelectContext(ctx, &entries, query); err != nil {
			return apperrors.Persistence("failed to list lockup entries", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *directoryRepository) SoftDeleteLockupEntry(ctx context.Context, tableName string, id int64) error {
	if !lockupTablePattern.MatchString(tableName) {
		return apperrors.Validation(fmt.Sprintf("invalid lockup table %q", tableName), nil)
	}
	return r.execute(ctx, "DirectoryRepository.SoftDeleteLockupEntry", func(ctx context.Context) error {
		query := fmt.Sprintf(`UPDATE %s SET is_deleted = 1 WHERE id = $1 AND is_deleted = 0`, tableName)
		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return apperrors.Persistence("failed to delete lockup entry", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound("lockup entry", id)
		}
		return nil
	})
}

// listNamed pages through a simple {id, name, deleted_at} catalog table
func (r *directoryRepository) listNamed(ctx context.Context, operation, table string, page, pageSize int, dest interface{}) (int, error) {
	var total int
	err := r.execute(ctx, operation, func(ctx context.Context) error {
		limit, offset := pageBounds(page, pageSize)
		query := fmt.Sprintf(`SELECT * FROM %s WHERE deleted_at IS NULL ORDER BY id LIMIT $1 OFFSET $2`, table)
		if err := r.db.SelectContext(ctx, dest, query, limit, offset); err != nil {
			return apperrors.Persistence("failed to list "+table, err)
		}
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL`, table)
		if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
			return apperrors.Persistence("failed to count "+table, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *directoryRepository) softDelete(ctx context.Context, operation, table, idColumn, resource string, id int64) error {
	return r.execute(ctx, operation, func(ctx context.Context) error {
		query := fmt.Sprintf(`UPDATE %s SET deleted_at = NOW() WHERE %s = $1 AND deleted_at IS NULL`, table, idColumn)
		result, err := r.db.ExecContext(ctx, query, id)
		if err != nil {
			return apperrors.Persistence("failed to delete "+resource, err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperrors.NotFound(resource, id)
		}
		return nil
	})
}
