package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bottlespin/bottlespin-backend/internal/stats"
	"github.com/bottlespin/bottlespin-backend/pkg/db/models"
)

type testStatsService struct {
	metricsFn  func(ctx context.Context, userID uuid.UUID) (*stats.UserMetrics, error)
	activityFn func(ctx context.Context, userID uuid.UUID) ([]models.BottleReturn, error)
	topFn      func(ctx context.Context, limit int) ([]stats.TopUser, error)
}

func (s *testStatsService) ApplyCredit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, bottles int, amount decimal.Decimal) error {
	return nil
}

func (s *testStatsService) ApplyDebit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) error {
	return nil
}

func (s *testStatsService) Metrics(ctx context.Context, userID uuid.UUID) (*stats.UserMetrics, error) {
	if s.metricsFn != nil {
		return s.metricsFn(ctx, userID)
	}
	return &stats.UserMetrics{}, nil
}

func (s *testStatsService) Activity(ctx context.Context, userID uuid.UUID) ([]models.BottleReturn, error) {
	if s.activityFn != nil {
		return s.activityFn(ctx, userID)
	}
	return nil, nil
}

func (s *testStatsService) TopUsers(ctx context.Context, limit int) ([]stats.TopUser, error) {
	if s.topFn != nil {
		return s.topFn(ctx, limit)
	}
	return nil, nil
}

func (s *testStatsService) RecomputeLeaderboard(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *testStatsService) BackfillStats(ctx context.Context) (int, error) {
	return 0, nil
}

func TestUserMetricsReportsSnapshot(t *testing.T) {
	userID := uuid.New()
	svc := &testStatsService{
		metricsFn: func(ctx context.Context, uid uuid.UUID) (*stats.UserMetrics, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return &stats.UserMetrics{
				BottlesReturned: 42,
				Balance:         decimal.NewFromFloat(3.75),
				Rank:            7,
				RecyclingRate:   80,
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/user/metrics", userID, nil)
	resp := httptest.NewRecorder()
	UserMetrics(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	for _, want := range []string{`"bottles_returned":42`, `"rank":7`, `"recycling_rate":80`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in body, got %s", want, body)
		}
	}
}

func TestUserMetricsRequiresIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/metrics", nil)
	resp := httptest.NewRecorder()
	UserMetrics(&testStatsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestUserActivityListsReturns(t *testing.T) {
	userID := uuid.New()
	svc := &testStatsService{
		activityFn: func(ctx context.Context, uid uuid.UUID) ([]models.BottleReturn, error) {
			return []models.BottleReturn{
				{ID: uuid.New(), UserID: uid, Count: 3},
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/user/activity", userID, nil)
	resp := httptest.NewRecorder()
	UserActivity(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"items"`) {
		t.Fatalf("expected items key, got %s", resp.Body.String())
	}
}

func TestLeaderboardHonorsLimit(t *testing.T) {
	var gotLimit int
	svc := &testStatsService{
		topFn: func(ctx context.Context, limit int) ([]stats.TopUser, error) {
			gotLimit = limit
			return []stats.TopUser{
				{UserID: uuid.New(), Name: "Asha", Rank: 1, TotalBottles: 40},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=3", nil)
	resp := httptest.NewRecorder()
	Leaderboard(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotLimit != 3 {
		t.Fatalf("expected limit 3, got %d", gotLimit)
	}
	if !strings.Contains(resp.Body.String(), "Asha") {
		t.Fatalf("expected joined name, got %s", resp.Body.String())
	}
}

func TestLeaderboardRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=0", nil)
	resp := httptest.NewRecorder()
	Leaderboard(&testStatsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
