package services

import (
	"context"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
	"github.com/bpmflow/bpmflow/pkg/observability"
	"github.com/bpmflow/bpmflow/pkg/repository/interfaces"
	"github.com/bpmflow/bpmflow/pkg/schema"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage validates and defaults 1-based pagination parameters
func normalizePage(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		return 0, 0, apperrors.Validation("page must be at least 1", nil)
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return 0, 0, apperrors.Validation("page_size must be between 1 and 100", nil)
	}
	return page, pageSize, nil
}

// DirectoryService manages the organizational catalogs: groups, levels,
// action types, field types and user-defined lockups.
type DirectoryService struct {
	directory   interfaces.DirectoryRepository
	provisioner schema.Provisioner
	logger      observability.Logger
}

// NewDirectoryService creates the directory service
func NewDirectoryService(directory interfaces.DirectoryRepository, provisioner schema.Provisioner, logger observability.Logger) *DirectoryService {
	return &DirectoryService{
		directory:   directory,
		provisioner: provisioner,
		logger:      logger.WithPrefix("directory"),
	}
}

func (s *DirectoryService) CreateGroup(ctx context.Context, name, description string) (*models.Group, error) {
	if name == "" {
		return nil, apperrors.Validation("group_name is required", nil)
	}
	g := &models.Group{GroupName: name, Description: description}
	if err := s.directory.CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *DirectoryService) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	return s.directory.GetGroup(ctx, id)
}

func (s *DirectoryService) ListGroups(ctx context.Context, page, pageSize int) ([]models.Group, models.Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	groups, total, err := s.directory.ListGroups(ctx, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return groups, models.NewPagination(page, pageSize, total), nil
}

func (s *DirectoryService) SearchGroups(ctx context.Context, query string) ([]models.Group, error) {
	if query == "" {
		return nil, apperrors.Validation("search query is required", nil)
	}
	return s.directory.SearchGroups(ctx, query)
}

func (s *DirectoryService) DeleteGroup(ctx context.Context, id int64) error {
	return s.directory.SoftDeleteGroup(ctx, id)
}

func (s *DirectoryService) CreateLevel(ctx context.Context, name string) (*models.Level, error) {
	if name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}
	l := &models.Level{Name: name}
	if err := s.directory.CreateLevel(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *DirectoryService) ListLevels(ctx context.Context, page, pageSize int) ([]models.Level, models.Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	levels, total, err := s.directory.ListLevels(ctx, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return levels, models.NewPagination(page, pageSize, total), nil
}

func (s *DirectoryService) CreateActionType(ctx context.Context, name string) (*models.ActionType, error) {
	if name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}
	a := &models.ActionType{Name: name}
	if err := s.directory.CreateActionType(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *DirectoryService) ListActionTypes(ctx context.Context, page, pageSize int) ([]models.ActionType, models.Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	types, total, err := s.directory.ListActionTypes(ctx, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return types, models.NewPagination(page, pageSize, total), nil
}

func (s *DirectoryService) CreateFieldType(ctx context.Context, name string) (*models.FieldType, error) {
	if name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}
	f := &models.FieldType{Name: name}
	if err := s.directory.CreateFieldType(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *DirectoryService) ListFieldTypes(ctx context.Context, page, pageSize int) ([]models.FieldType, models.Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	types, total, err := s.directory.ListFieldTypes(ctx, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return types, models.NewPagination(page, pageSize, total), nil
}

// CreateLockup registers a user-defined enumeration and provisions its
// entries table (lkt_ prefix)
func (s *DirectoryService) CreateLockup(ctx context.Context, name, displayName string) (*models.Lockup, error) {
	if name == "" {
		return nil, apperrors.Validation("name is required", nil)
	}
	tableName, err := schema.LockupTableName(name)
	if err != nil {
		return nil, err
	}

	l := &models.Lockup{
		Name:        name,
		DisplayName: displayName,
		TableName:   tableName,
		Status:      models.LockupStatusActive,
	}
	if err := s.directory.CreateLockup(ctx, l); err != nil {
		return nil, err
	}

	if _, err := s.provisioner.CreateLockupTable(ctx, name); err != nil {
		return nil, err
	}

	s.logger.Info("lockup created", map[string]interface{}{
		"lockup_id": l.ID,
		"table":     tableName,
	})
	return l, nil
}

func (s *DirectoryService) GetLockup(ctx context.Context, id int64) (*models.Lockup, error) {
	return s.directory.GetLockup(ctx, id)
}

func (s *DirectoryService) ListLockups(ctx context.Context, page, pageSize int) ([]models.Lockup, models.Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	lockups, total, err := s.directory.ListLockups(ctx, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return lockups, models.NewPagination(page, pageSize, total), nil
}

func (s *DirectoryService) SearchLockups(ctx context.Context, query string) ([]models.Lockup, error) {
	if query == "" {
		return nil, apperrors.Validation("search query is required", nil)
	}
	return s.directory.SearchLockups(ctx, query)
}

func (s *DirectoryService) DeleteLockup(ctx context.Context, id int64) error {
	return s.directory.SoftDeleteLockup(ctx, id)
}

// AddLockupEntry appends an entry to a lockup's provisioned table
func (s *DirectoryService) AddLockupEntry(ctx context.Context, lockupID int64, name string) (int64, error) {
	if name == "" {
		return 0, apperrors.Validation("name is required", nil)
	}
	lockup, err := s.directory.GetLockup(ctx, lockupID)
	if err != nil {
		return 0, err
	}
	return s.directory.CreateLockupEntry(ctx, lockup.TableName, name)
}

// ListLockupEntries returns the live entries of a lockup
func (s *DirectoryService) ListLockupEntries(ctx context.Context, lockupID int64) ([]models.LockupEntry, error) {
	lockup, err := s.directory.GetLockup(ctx, lockupID)
	if err != nil {
		return nil, err
	}
	return s.directory.ListLockupEntries(ctx, lockup.TableName)
}

// DeleteLockupEntry soft-deletes one entry of a lockup
func (s *DirectoryService) DeleteLockupEntry(ctx context.Context, lockupID, entryID int64) error {
	lockup, err := s.directory.GetLockup(ctx, lockupID)
	if err != nil {
		return err
	}
	return s.directory.SoftDeleteLockupEntry(ctx, lockup.TableName, entryID)
}
