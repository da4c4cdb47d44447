package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
)

var testAddressInput = AddressInput{
	Title:         "Depo",
	FullName:      "Buyer One",
	Phone:         "5551112233",
	City:          "İstanbul",
	District:      "Kadıköy",
	StreetAddress: "Örnek Cad. No:1",
}

func newTestAddressService(t *testing.T, repo *stubAddressRepository) AddressService {
	t.Helper()
	svc, err := NewAddressService(AddressServiceDeps{
		Addresses:   repo,
		Clock:       fixedClock(time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)),
		IDGenerator: staticID("01TEST"),
	})
	if err != nil {
		t.Fatalf("NewAddressService: %v", err)
	}
	return svc
}

func TestCreateAddressStampsIDAndTimestamps(t *testing.T) {
	repo := &stubAddressRepository{}
	svc := newTestAddressService(t, repo)

	addr, err := svc.CreateAddress(context.Background(), "usr_1", testAddressInput)
	if err != nil {
		t.Fatalf("CreateAddress: %v", err)
	}
	if addr.ID != "adr_01TEST" {
		t.Fatalf("unexpected id %q", addr.ID)
	}
	want := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	if !addr.CreatedAt.Equal(want) || !addr.UpdatedAt.Equal(want) {
		t.Fatalf("unexpected timestamps %v / %v", addr.CreatedAt, addr.UpdatedAt)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(repo.upserted))
	}
}

func TestCreateAddressValidatesRequiredFields(t *testing.T) {
	svc := newTestAddressService(t, &stubAddressRepository{})

	input := testAddressInput
	input.Title = ""
	if _, err := svc.CreateAddress(context.Background(), "usr_1", input); !errors.Is(err, ErrAddressInvalidInput) {
		t.Fatalf("expected ErrAddressInvalidInput, got %v", err)
	}

	input = testAddressInput
	input.City = "  "
	if _, err := svc.CreateAddress(context.Background(), "usr_1", input); !errors.Is(err, ErrAddressInvalidInput) {
		t.Fatalf("expected ErrAddressInvalidInput, got %v", err)
	}
}

func TestUpdateAddressUnknownIDIsNotFound(t *testing.T) {
	svc := newTestAddressService(t, &stubAddressRepository{})

	if _, err := svc.UpdateAddress(context.Background(), "usr_1", "adr_missing", testAddressInput); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected ErrAddressNotFound, got %v", err)
	}
}

func TestUpdateAddressKeepsCreationTime(t *testing.T) {
	created := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	repo := &stubAddressRepository{
		getFn: func(ctx context.Context, userID, addressID string) (domain.Address, error) {
			return domain.Address{ID: addressID, Title: "Eski", CreatedAt: created, UpdatedAt: created}, nil
		},
	}
	svc := newTestAddressService(t, repo)

	addr, err := svc.UpdateAddress(context.Background(), "usr_1", "adr_1", testAddressInput)
	if err != nil {
		t.Fatalf("UpdateAddress: %v", err)
	}
	if !addr.CreatedAt.Equal(created) {
		t.Fatalf("creation time changed: %v", addr.CreatedAt)
	}
	if addr.Title != "Depo" {
		t.Fatalf("patch not applied: %q", addr.Title)
	}
	if !addr.UpdatedAt.After(created) {
		t.Fatalf("expected updatedAt to move forward, got %v", addr.UpdatedAt)
	}
}

func TestSetDefaultAddressPassesClock(t *testing.T) {
	var gotNow time.Time
	repo := &stubAddressRepository{
		setDefaultFn: func(ctx context.Context, userID, addressID string, now time.Time) (domain.Address, error) {
			gotNow = now
			return domain.Address{ID: addressID, IsDefault: true}, nil
		},
	}
	svc := newTestAddressService(t, repo)

	addr, err := svc.SetDefaultAddress(context.Background(), "usr_1", "adr_1")
	if err != nil {
		t.Fatalf("SetDefaultAddress: %v", err)
	}
	if !addr.IsDefault {
		t.Fatal("expected default flag set")
	}
	want := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	if !gotNow.Equal(want) {
		t.Fatalf("unexpected now %v", gotNow)
	}
}

func TestDeleteAddressUnknownIDIsNotFound(t *testing.T) {
	repo := &stubAddressRepository{
		deleteFn: func(ctx context.Context, userID, addressID string) error {
			return stubRepositoryError{notFound: true}
		},
	}
	svc := newTestAddressService(t, repo)

	if err := svc.DeleteAddress(context.Background(), "usr_1", "adr_missing"); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected ErrAddressNotFound, got %v", err)
	}
}
