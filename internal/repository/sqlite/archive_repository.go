package sqlite

import (
	"context"

	errwrap "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/rahmatrdn/go-query-profiler/entity"
	"github.com/rahmatrdn/go-query-profiler/internal/helper"
)

type ProfileArchiveRepository interface {
	Save(ctx context.Context, archive *entity.ProfileArchive) error
	FindRecent(ctx context.Context, limit int) ([]*entity.ProfileArchive, error)
	CountFlaggedN1(ctx context.Context, limit int) (int64, error)
	Prune(ctx context.Context, maxLimit int) error
}

type ProfileArchive struct {
	db *gorm.DB
}

func NewProfileArchiveRepository(db *gorm.DB) *ProfileArchive {
	return &ProfileArchive{db: db}
}

func (r *ProfileArchive) Save(ctx context.Context, archive *entity.ProfileArchive) error {
	funcName := "ProfileArchiveRepository.Save"
	if err := helper.CheckDeadline(ctx); err != nil {
		return errwrap.Wrap(err, funcName)
	}

	if err := r.db.WithContext(ctx).Create(archive).Error; err != nil {
		return errwrap.Wrap(err, funcName)
	}
	return nil
}

func (r *ProfileArchive) FindRecent(ctx context.Context, limit int) ([]*entity.ProfileArchive, error) {
	funcName := "ProfileArchiveRepository.FindRecent"
	if err := helper.CheckDeadline(ctx); err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	var archives []*entity.ProfileArchive
	err := r.db.WithContext(ctx).
		Order("finished_at desc").
		Limit(limit).
		Find(&archives).Error

	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}
	return archives, nil
}

// CountFlaggedN1 counts N+1-flagged profiles among the most recent `limit`
// archived rows, for the aggregate recommendation view.
func (r *ProfileArchive) CountFlaggedN1(ctx context.Context, limit int) (int64, error) {
	funcName := "ProfileArchiveRepository.CountFlaggedN1"
	if err := helper.CheckDeadline(ctx); err != nil {
		return 0, errwrap.Wrap(err, funcName)
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProfileArchive{}).
		Where("potential_n1 = ? AND id IN (?)", true,
			r.db.Model(&entity.ProfileArchive{}).
				Select("id").
				Order("finished_at desc").
				Limit(limit),
		).
		Count(&count).Error

	if err != nil {
		return 0, errwrap.Wrap(err, funcName)
	}
	return count, nil
}

func (r *ProfileArchive) Prune(ctx context.Context, maxLimit int) error {
	funcName := "ProfileArchiveRepository.Prune"
	if err := helper.CheckDeadline(ctx); err != nil {
		return errwrap.Wrap(err, funcName)
	}

	// DELETE FROM profile_archives WHERE id NOT IN
	//   (SELECT id FROM profile_archives ORDER BY finished_at DESC LIMIT maxLimit)
	return r.db.WithContext(ctx).
		Where("id NOT IN (?)",
			r.db.Model(&entity.ProfileArchive{}).
				Select("id").
				Order("finished_at desc").
				Limit(maxLimit),
		).
		Delete(&entity.ProfileArchive{}).Error
}
