package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	pfirestore "github.com/kurumsal-tedarikci/api/internal/platform/firestore"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const addressCollectionPattern = "users/%s/addresses"

// AddressRepository persists per-user delivery and invoice addresses in Firestore.
type AddressRepository struct {
	provider *pfirestore.Provider
}

// NewAddressRepository constructs a Firestore-backed address repository.
func NewAddressRepository(provider *pfirestore.Provider) (*AddressRepository, error) {
	if provider == nil {
		return nil, errors.New("address repository requires firestore provider")
	}
	return &AddressRepository{provider: provider}, nil
}

// List returns all addresses for the specified user with the default entry first.
func (r *AddressRepository) List(ctx context.Context, userID string) ([]domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("isDefault", firestore.Desc).OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var results []domain.Address
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("addresses.list", err)
		}
		addr, err := decodeAddressSnapshot(snap)
		if err != nil {
			return nil, err
		}
		results = append(results, addr)
	}
	return results, nil
}

// Get fetches a single address owned by the user.
func (r *AddressRepository) Get(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}
	id := strings.TrimSpace(addressID)
	if id == "" {
		return domain.Address{}, errors.New("address repository: address id is required")
	}
	snap, err := coll.Doc(id).Get(ctx)
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.get", err)
	}
	return decodeAddressSnapshot(snap)
}

// Upsert creates or updates an address. When the address is flagged as default the
// flag is cleared on every sibling inside the same transaction so at most one
// default survives.
func (r *AddressRepository) Upsert(ctx context.Context, userID string, addr domain.Address) (domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}

	var saved domain.Address
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var docRef *firestore.DocumentRef
		if id := strings.TrimSpace(addr.ID); id != "" {
			docRef = coll.Doc(id)
		} else {
			docRef = coll.NewDoc()
		}

		var doc addressDocument
		snap, err := tx.Get(docRef)
		switch status.Code(err) {
		case codes.NotFound:
			// new document, leave doc zeroed
		case codes.OK:
			if err := snap.DataTo(&doc); err != nil {
				return fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
			}
		default:
			return err
		}

		// All reads must precede writes inside a Firestore transaction, so the
		// sibling defaults are collected before the document is written.
		var siblings []*firestore.DocumentRef
		if addr.IsDefault {
			siblings, err = r.defaultSiblings(tx, coll, docRef.ID)
			if err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if doc.CreatedAt.IsZero() {
			if !addr.CreatedAt.IsZero() {
				doc.CreatedAt = addr.CreatedAt.UTC()
			} else {
				doc.CreatedAt = now
			}
		}
		doc.UpdatedAt = now
		doc.Title = strings.TrimSpace(addr.Title)
		doc.FullName = strings.TrimSpace(addr.FullName)
		doc.Phone = strings.TrimSpace(addr.Phone)
		doc.City = strings.TrimSpace(addr.City)
		doc.District = strings.TrimSpace(addr.District)
		doc.StreetAddress = strings.TrimSpace(addr.StreetAddress)
		doc.IsDefault = addr.IsDefault

		if err := tx.Set(docRef, doc); err != nil {
			return err
		}
		if err := clearDefaultRefs(tx, siblings); err != nil {
			return err
		}

		saved = doc.toDomain(docRef.ID)
		return nil
	})
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.upsert", err)
	}
	return saved, nil
}

// Delete removes the specified address document.
func (r *AddressRepository) Delete(ctx context.Context, userID string, addressID string) error {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(addressID)
	if id == "" {
		return errors.New("address repository: address id is required")
	}
	if _, err := coll.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("addresses.delete", err)
	}
	return nil
}

// SetDefault marks the address as the user's single default, demoting every sibling
// in the same transaction.
func (r *AddressRepository) SetDefault(ctx context.Context, userID string, addressID string, now time.Time) (domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}
	id := strings.TrimSpace(addressID)
	if id == "" {
		return domain.Address{}, errors.New("address repository: address id is required")
	}

	var saved domain.Address
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docRef := coll.Doc(id)
		snap, err := tx.Get(docRef)
		if err != nil {
			return err
		}
		var doc addressDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
		}

		siblings, err := r.defaultSiblings(tx, coll, docRef.ID)
		if err != nil {
			return err
		}

		ts := now.UTC()
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		doc.IsDefault = true
		doc.UpdatedAt = ts
		if err := tx.Update(docRef, []firestore.Update{
			{Path: "isDefault", Value: true},
			{Path: "updatedAt", Value: ts},
		}); err != nil {
			return err
		}
		if err := clearDefaultRefs(tx, siblings); err != nil {
			return err
		}

		saved = doc.toDomain(docRef.ID)
		return nil
	})
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.setDefault", err)
	}
	return saved, nil
}

func (r *AddressRepository) collection(ctx context.Context, userID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("address repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("address repository: user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf(addressCollectionPattern, uid)
	return client.Collection(path), nil
}

func (r *AddressRepository) defaultSiblings(tx *firestore.Transaction, coll *firestore.CollectionRef, currentID string) ([]*firestore.DocumentRef, error) {
	query := coll.Where("isDefault", "==", true).Limit(10)
	iter := tx.Documents(query)
	snaps, err := iter.GetAll()
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	refs := make([]*firestore.DocumentRef, 0, len(snaps))
	for _, snap := range snaps {
		if snap.Ref.ID == currentID {
			continue
		}
		refs = append(refs, snap.Ref)
	}
	return refs, nil
}

func clearDefaultRefs(tx *firestore.Transaction, refs []*firestore.DocumentRef) error {
	for _, ref := range refs {
		if err := tx.Update(ref, []firestore.Update{{Path: "isDefault", Value: false}}); err != nil {
			return err
		}
	}
	return nil
}

func decodeAddressSnapshot(snapshot *firestore.DocumentSnapshot) (domain.Address, error) {
	var doc addressDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return domain.Address{}, fmt.Errorf("decode address %s: %w", snapshot.Ref.ID, err)
	}
	return doc.toDomain(snapshot.Ref.ID), nil
}

type addressDocument struct {
	Title         string    `firestore:"title"`
	FullName      string    `firestore:"fullName"`
	Phone         string    `firestore:"phone,omitempty"`
	City          string    `firestore:"city"`
	District      string    `firestore:"district"`
	StreetAddress string    `firestore:"streetAddress"`
	IsDefault     bool      `firestore:"isDefault"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func (d addressDocument) toDomain(id string) domain.Address {
	return domain.Address{
		ID:            id,
		Title:         d.Title,
		FullName:      d.FullName,
		Phone:         d.Phone,
		City:          d.City,
		District:      d.District,
		StreetAddress: d.StreetAddress,
		IsDefault:     d.IsDefault,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.AddressRepository = (*AddressRepository)(nil)
