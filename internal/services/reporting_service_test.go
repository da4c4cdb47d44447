package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

func newTestReportingService(t *testing.T, users *stubUserRepository, orders *stubOrderRepository) ReportingService {
	t.Helper()
	svc, err := NewReportingService(ReportingServiceDeps{
		Users:    users,
		Orders:   orders,
		Clock:    fixedClock(time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)),
		Location: time.UTC,
	})
	if err != nil {
		t.Fatalf("NewReportingService: %v", err)
	}
	return svc
}

func TestDashboardBucketsOrdersByCalendarDay(t *testing.T) {
	mkOrder := func(created time.Time) domain.Order {
		return domain.Order{ID: "ord", CreatedAt: created}
	}
	orders := &stubOrderRepository{
		countFn:         func(ctx context.Context) (int64, error) { return 9, nil },
		countByStatusFn: func(ctx context.Context, status domain.OrderStatus) (int64, error) { return 3, nil },
		listCreatedSinceFn: func(ctx context.Context, since time.Time) ([]domain.Order, error) {
			want := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
			if !since.Equal(want) {
				t.Fatalf("expected window start %v, got %v", want, since)
			}
			return []domain.Order{
				// Two orders on the oldest day, one just before today's
				// midnight, and two today.
				mkOrder(time.Date(2025, 4, 30, 9, 0, 0, 0, time.UTC)),
				mkOrder(time.Date(2025, 4, 30, 23, 59, 0, 0, time.UTC)),
				mkOrder(time.Date(2025, 5, 5, 23, 59, 59, 0, time.UTC)),
				mkOrder(time.Date(2025, 5, 6, 0, 0, 1, 0, time.UTC)),
				mkOrder(time.Date(2025, 5, 6, 11, 30, 0, 0, time.UTC)),
			}, nil
		},
	}
	users := &stubUserRepository{
		countFn: func(ctx context.Context) (int64, error) { return 4, nil },
	}
	svc := newTestReportingService(t, users, orders)

	report, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	if report.TotalUsers != 4 || report.TotalOrders != 9 || report.PendingOrders != 3 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if report.TodayOrders != 2 {
		t.Fatalf("expected 2 orders today, got %d", report.TodayOrders)
	}
	if len(report.DailyOrders) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(report.DailyOrders))
	}
	if report.DailyOrders[0].Date != "2025-04-30" || report.DailyOrders[0].Count != 2 {
		t.Fatalf("unexpected oldest bucket %+v", report.DailyOrders[0])
	}
	if report.DailyOrders[6].Date != "2025-05-06" || report.DailyOrders[6].Count != 2 {
		t.Fatalf("unexpected today bucket %+v", report.DailyOrders[6])
	}
	if report.DailyOrders[5].Date != "2025-05-05" || report.DailyOrders[5].Count != 1 {
		t.Fatalf("unexpected yesterday bucket %+v", report.DailyOrders[5])
	}
	// 2025-05-01 through 2025-05-04 had no orders.
	for i := 1; i <= 4; i++ {
		if report.DailyOrders[i].Count != 0 {
			t.Fatalf("expected empty bucket %s, got %d", report.DailyOrders[i].Date, report.DailyOrders[i].Count)
		}
	}
}

func TestDashboardSumsSyncedRevenueAcrossPages(t *testing.T) {
	orders := &stubOrderRepository{
		listFn: func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
			if filter.ErpSync == nil || !*filter.ErpSync {
				t.Fatal("revenue scan must filter to synced orders")
			}
			if filter.Pagination.PageToken == "" {
				return domain.CursorPage[domain.Order]{
					Items:         []domain.Order{{Totals: domain.OrderTotals{Total: decimal.NewFromInt(240)}}},
					NextPageToken: "next",
				}, nil
			}
			return domain.CursorPage[domain.Order]{
				Items: []domain.Order{{Totals: domain.OrderTotals{Total: decimal.RequireFromString("120.50")}}},
			}, nil
		},
	}
	svc := newTestReportingService(t, &stubUserRepository{}, orders)

	report, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if want := decimal.RequireFromString("360.50"); !report.SyncedRevenue.Equal(want) {
		t.Fatalf("expected revenue %s, got %s", want, report.SyncedRevenue)
	}
}

func TestListUsersRedactsPasswordHashes(t *testing.T) {
	users := &stubUserRepository{
		listFn: func(ctx context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.User], error) {
			return domain.CursorPage[domain.User]{Items: []domain.User{
				{ID: "usr_1", PasswordHash: "$2a$10$secret"},
			}}, nil
		},
	}
	svc := newTestReportingService(t, users, &stubOrderRepository{})

	page, err := svc.ListUsers(context.Background(), UserListQuery{})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].PasswordHash != "" {
		t.Fatalf("expected redacted hash, got %+v", page.Items)
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc := newTestReportingService(t, &stubUserRepository{}, &stubOrderRepository{})

	if _, err := svc.GetUser(context.Background(), "usr_missing"); !errors.Is(err, ErrReportingUserNotFound) {
		t.Fatalf("expected ErrReportingUserNotFound, got %v", err)
	}
}
