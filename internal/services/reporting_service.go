package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const (
	dashboardHistogramDays = 7
	dashboardDateLayout    = "2006-01-02"

	revenueScanPageSize = 200
)

var (
	// ErrReportingInvalidInput signals the caller provided invalid query data.
	ErrReportingInvalidInput = errors.New("reporting: invalid input")
	// ErrReportingUserNotFound indicates the requested user does not exist.
	ErrReportingUserNotFound = errors.New("reporting: user not found")
)

// ReportingServiceDeps bundles collaborators required to construct the reporting service.
type ReportingServiceDeps struct {
	Users  repositories.UserRepository
	Orders repositories.OrderRepository
	Clock  func() time.Time
	// Location sets the calendar used for daily bucketing. Defaults to the
	// server's local timezone.
	Location *time.Location
}

type reportingService struct {
	users    repositories.UserRepository
	orders   repositories.OrderRepository
	clock    func() time.Time
	location *time.Location
}

// NewReportingService wires dependencies into a concrete ReportingService implementation.
func NewReportingService(deps ReportingServiceDeps) (ReportingService, error) {
	if deps.Users == nil {
		return nil, errors.New("reporting service: user repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("reporting service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	location := deps.Location
	if location == nil {
		location = time.Local
	}

	return &reportingService{
		users:  deps.Users,
		orders: deps.Orders,
		clock: func() time.Time {
			return clock().UTC()
		},
		location: location,
	}, nil
}

// Dashboard recomputes every figure from the store on each call.
func (s *reportingService) Dashboard(ctx context.Context) (DashboardReport, error) {
	now := s.clock()
	localNow := now.In(s.location)
	startOfToday := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, s.location)
	windowStart := startOfToday.AddDate(0, 0, -(dashboardHistogramDays - 1))

	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return DashboardReport{}, fmt.Errorf("reporting: count users: %w", err)
	}
	totalOrders, err := s.orders.Count(ctx)
	if err != nil {
		return DashboardReport{}, fmt.Errorf("reporting: count orders: %w", err)
	}
	pendingOrders, err := s.orders.CountByStatus(ctx, domain.OrderStatusPending)
	if err != nil {
		return DashboardReport{}, fmt.Errorf("reporting: count pending orders: %w", err)
	}

	recent, err := s.orders.ListCreatedSince(ctx, windowStart.UTC())
	if err != nil {
		return DashboardReport{}, fmt.Errorf("reporting: list recent orders: %w", err)
	}

	buckets := make(map[string]int64, dashboardHistogramDays)
	var todayOrders int64
	for _, order := range recent {
		local := order.CreatedAt.In(s.location)
		buckets[local.Format(dashboardDateLayout)]++
		if !local.Before(startOfToday) {
			todayOrders++
		}
	}

	daily := make([]DailyOrderCount, 0, dashboardHistogramDays)
	for day := 0; day < dashboardHistogramDays; day++ {
		date := windowStart.AddDate(0, 0, day).Format(dashboardDateLayout)
		daily = append(daily, DailyOrderCount{Date: date, Count: buckets[date]})
	}

	revenue, err := s.syncedRevenue(ctx)
	if err != nil {
		return DashboardReport{}, err
	}

	return DashboardReport{
		TotalUsers:    totalUsers,
		TotalOrders:   totalOrders,
		TodayOrders:   todayOrders,
		PendingOrders: pendingOrders,
		SyncedRevenue: revenue,
		DailyOrders:   daily,
		GeneratedAt:   now,
	}, nil
}

func (s *reportingService) ListUsers(ctx context.Context, query UserListQuery) (domain.CursorPage[User], error) {
	page, err := s.users.List(ctx, repositories.UserListFilter{
		Role:           strings.TrimSpace(query.Role),
		MembershipType: strings.TrimSpace(query.MembershipType),
		Pagination:     query.Pagination,
	})
	if err != nil {
		return domain.CursorPage[User]{}, err
	}
	for i := range page.Items {
		page.Items[i] = redactUser(page.Items[i])
	}
	return page, nil
}

func (s *reportingService) GetUser(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrReportingInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return User{}, ErrReportingUserNotFound
		}
		return User{}, err
	}
	return redactUser(user), nil
}

// syncedRevenue sums the grand total of every order already pushed to the ERP.
func (s *reportingService) syncedRevenue(ctx context.Context) (decimal.Decimal, error) {
	synced := true
	revenue := decimal.Zero

	var token string
	for {
		page, err := s.orders.List(ctx, repositories.OrderListFilter{
			ErpSync:    &synced,
			Pagination: Pagination{PageSize: revenueScanPageSize, PageToken: token},
		})
		if err != nil {
			return decimal.Zero, fmt.Errorf("reporting: scan synced orders: %w", err)
		}
		for _, order := range page.Items {
			revenue = revenue.Add(order.Totals.Total)
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	return revenue, nil
}
