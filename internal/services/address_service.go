package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const addressIDPrefix = "adr_"

var (
	// ErrAddressInvalidInput signals the caller provided invalid address data.
	ErrAddressInvalidInput = errors.New("address: invalid input")
	// ErrAddressNotFound indicates the address does not exist in the caller's book.
	ErrAddressNotFound = errors.New("address: not found")
)

// AddressServiceDeps bundles collaborators required to construct the address service.
type AddressServiceDeps struct {
	Addresses   repositories.AddressRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type addressService struct {
	addresses repositories.AddressRepository
	clock     func() time.Time
	newID     func() string
}

// NewAddressService wires dependencies into a concrete AddressService implementation.
func NewAddressService(deps AddressServiceDeps) (AddressService, error) {
	if deps.Addresses == nil {
		return nil, errors.New("address service: address repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	return &addressService{
		addresses: deps.Addresses,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *addressService) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrAddressInvalidInput)
	}
	return s.addresses.List(ctx, userID)
}

func (s *addressService) CreateAddress(ctx context.Context, userID string, input AddressInput) (Address, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Address{}, fmt.Errorf("%w: user id is required", ErrAddressInvalidInput)
	}
	if err := validateAddressInput(input); err != nil {
		return Address{}, err
	}

	now := s.clock()
	addr := domain.Address{
		ID:            addressIDPrefix + s.newID(),
		Title:         strings.TrimSpace(input.Title),
		FullName:      strings.TrimSpace(input.FullName),
		Phone:         strings.TrimSpace(input.Phone),
		City:          strings.TrimSpace(input.City),
		District:      strings.TrimSpace(input.District),
		StreetAddress: strings.TrimSpace(input.StreetAddress),
		IsDefault:     input.IsDefault,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return s.addresses.Upsert(ctx, userID, addr)
}

func (s *addressService) UpdateAddress(ctx context.Context, userID string, addressID string, input AddressInput) (Address, error) {
	userID = strings.TrimSpace(userID)
	addressID = strings.TrimSpace(addressID)
	if userID == "" || addressID == "" {
		return Address{}, fmt.Errorf("%w: user id and address id are required", ErrAddressInvalidInput)
	}
	if err := validateAddressInput(input); err != nil {
		return Address{}, err
	}

	existing, err := s.addresses.Get(ctx, userID, addressID)
	if err != nil {
		if isRepoNotFound(err) {
			return Address{}, ErrAddressNotFound
		}
		return Address{}, err
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.FullName = strings.TrimSpace(input.FullName)
	existing.Phone = strings.TrimSpace(input.Phone)
	existing.City = strings.TrimSpace(input.City)
	existing.District = strings.TrimSpace(input.District)
	existing.StreetAddress = strings.TrimSpace(input.StreetAddress)
	existing.IsDefault = input.IsDefault
	existing.UpdatedAt = s.clock()

	return s.addresses.Upsert(ctx, userID, existing)
}

func (s *addressService) DeleteAddress(ctx context.Context, userID string, addressID string) error {
	userID = strings.TrimSpace(userID)
	addressID = strings.TrimSpace(addressID)
	if userID == "" || addressID == "" {
		return fmt.Errorf("%w: user id and address id are required", ErrAddressInvalidInput)
	}

	if err := s.addresses.Delete(ctx, userID, addressID); err != nil {
		if isRepoNotFound(err) {
			return ErrAddressNotFound
		}
		return err
	}
	return nil
}

func (s *addressService) SetDefaultAddress(ctx context.Context, userID string, addressID string) (Address, error) {
	userID = strings.TrimSpace(userID)
	addressID = strings.TrimSpace(addressID)
	if userID == "" || addressID == "" {
		return Address{}, fmt.Errorf("%w: user id and address id are required", ErrAddressInvalidInput)
	}

	addr, err := s.addresses.SetDefault(ctx, userID, addressID, s.clock())
	if err != nil {
		if isRepoNotFound(err) {
			return Address{}, ErrAddressNotFound
		}
		return Address{}, err
	}
	return addr, nil
}

func validateAddressInput(input AddressInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrAddressInvalidInput)
	}
	if strings.TrimSpace(input.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrAddressInvalidInput)
	}
	if strings.TrimSpace(input.City) == "" {
		return fmt.Errorf("%w: city is required", ErrAddressInvalidInput)
	}
	if strings.TrimSpace(input.StreetAddress) == "" {
		return fmt.Errorf("%w: street address is required", ErrAddressInvalidInput)
	}
	return nil
}
