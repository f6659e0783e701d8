package services

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/debugmentor/debugmentor-backend/internal/apierr"
	"github.com/debugmentor/debugmentor-backend/internal/logger"
	"github.com/debugmentor/debugmentor-backend/internal/repos"
	"github.com/debugmentor/debugmentor-backend/internal/types"
)

const dashboardWindowDays = 30

type DashboardStats struct {
	TotalUsers         int64              `json:"total_users"`
	TotalErrors        int64              `json:"total_errors"`
	AvgSkillScore      float64            `json:"avg_skill_score"`
	ErrorsByDifficulty map[string]int64   `json:"errors_by_difficulty"`
	DailyStats         []repos.DailyCount `json:"daily_stats"`
	NewUsersLast30Days int64              `json:"new_users_last_30_days"`
}

type AdminErrorsPage struct {
	Errors     []*types.ErrorLog `json:"errors"`
	Pagination Pagination        `json:"pagination"`
}

type AdminService interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
	ListUsers(ctx context.Context) ([]types.PublicUser, error)
	ListErrors(ctx context.Context, page, limit int) (*AdminErrorsPage, error)
}

type adminService struct {
	db     *gorm.DB
	log    *logger.Logger
	users  repos.UserRepo
	errors repos.ErrorLogRepo
	scores repos.SkillScoreRepo
}

func NewAdminService(
	db *gorm.DB,
	log *logger.Logger,
	users repos.UserRepo,
	errors repos.ErrorLogRepo,
	scores repos.SkillScoreRepo,
) AdminService {
	return &adminService{
		db:     db,
		log:    log.With("service", "AdminService"),
		users:  users,
		errors: errors,
		scores: scores,
	}
}

func (s *adminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		ErrorsByDifficulty: map[string]int64{
			types.DifficultyEasy:   0,
			types.DifficultyMedium: 0,
			types.DifficultyHard:   0,
		},
		DailyStats: []repos.DailyCount{},
	}
	since := time.Now().AddDate(0, 0, -dashboardWindowDays)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := s.users.Count(gctx, nil)
		if err != nil {
			return err
		}
		stats.TotalUsers = count
		return nil
	})
	g.Go(func() error {
		count, err := s.errors.Count(gctx, nil)
		if err != nil {
			return err
		}
		stats.TotalErrors = count
		return nil
	})
	g.Go(func() error {
		avg, err := s.scores.AverageCurrentScore(gctx, nil)
		if err != nil {
			return err
		}
		stats.AvgSkillScore = math.Round(avg*10) / 10
		return nil
	})
	g.Go(func() error {
		counts, err := s.errors.CountByDifficulty(gctx, nil)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for _, dc := range counts {
			stats.ErrorsByDifficulty[dc.Difficulty] = dc.Count
		}
		return nil
	})
	g.Go(func() error {
		daily, err := s.errors.DailyCountsSince(gctx, nil, since)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		stats.DailyStats = daily
		return nil
	})
	g.Go(func() error {
		count, err := s.users.CountCreatedSince(gctx, nil, since)
		if err != nil {
			return err
		}
		stats.NewUsersLast30Days = count
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	return stats, nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]types.PublicUser, error) {
	users, err := s.users.GetAll(ctx, nil)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	publicUsers := make([]types.PublicUser, 0, len(users))
	for _, user := range users {
		publicUsers = append(publicUsers, user.Public())
	}
	return publicUsers, nil
}

func (s *adminService) ListErrors(ctx context.Context, page, limit int) (*AdminErrorsPage, error) {
	page, limit = sanitizePage(page, limit)
	offset := (page - 1) * limit

	logs, err := s.errors.ListAll(ctx, nil, offset, limit)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}
	total, err := s.errors.Count(ctx, nil)
	if err != nil {
		return nil, apierr.StorageUnavailable(err)
	}

	return &AdminErrorsPage{
		Errors: logs,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: totalPages(total, limit),
		},
	}, nil
}
