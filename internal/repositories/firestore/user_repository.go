package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firestorepb "cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/kurumsal-tedarikci/api/internal/domain"
	pfirestore "github.com/kurumsal-tedarikci/api/internal/platform/firestore"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
)

const userCollection = "users"

// UserRepository persists user accounts in Firestore keyed by their generated ID.
type UserRepository struct {
	base     *pfirestore.BaseRepository[userDocument]
	provider *pfirestore.Provider
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil, nil)
	return &UserRepository{base: base, provider: provider}, nil
}

// Insert stores a new user. A duplicate document ID surfaces as a conflict.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	userID := strings.TrimSpace(user.ID)
	if userID == "" {
		return errors.New("user repository: user id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeUserDocument(user)); err != nil {
		return pfirestore.WrapError("users.insert", err)
	}
	return nil
}

// Update replaces the persisted user state with the provided snapshot.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	if r == nil || r.base == nil {
		return errors.New("user repository not initialised")
	}
	userID := strings.TrimSpace(user.ID)
	if userID == "" {
		return errors.New("user repository: user id is required")
	}
	if _, err := r.base.Set(ctx, userID, encodeUserDocument(user)); err != nil {
		return err
	}
	return nil
}

// FindByID loads a single user account.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, errors.New("user repository: user id is required")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return decodeUserDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// FindByEmail resolves the account registered under the given credential email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if r == nil || r.base == nil {
		return domain.User{}, errors.New("user repository not initialised")
	}
	normalised := strings.ToLower(strings.TrimSpace(email))
	if normalised == "" {
		return domain.User{}, errors.New("user repository: email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", normalised).Limit(1)
	})
	if err != nil {
		return domain.User{}, err
	}
	if len(docs) == 0 {
		return domain.User{}, pfirestore.WrapError("users.findByEmail", status.Error(codes.NotFound, "user not found"))
	}
	doc := docs[0]
	return decodeUserDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns user accounts ordered by creation time, newest first.
func (r *UserRepository) List(ctx context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.User], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.User]{}, errors.New("user repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeCursorToken(token)
		if err != nil {
			return domain.CursorPage[domain.User]{}, fmt.Errorf("user repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	role := strings.ToLower(strings.TrimSpace(filter.Role))
	membership := strings.ToLower(strings.TrimSpace(filter.MembershipType))

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if role != "" {
			q = q.Where("role", "==", role)
		}
		if membership != "" {
			q = q.Where("membershipType", "==", membership)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.User]{}, err
	}

	valueDocs := docs
	nextToken := ""
	if limit > 0 && len(valueDocs) == fetchLimit {
		last := valueDocs[len(valueDocs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeCursorToken(tokenTime, last.ID)
		valueDocs = valueDocs[:len(valueDocs)-1]
	}

	items := make([]domain.User, 0, len(valueDocs))
	for _, doc := range valueDocs {
		items = append(items, decodeUserDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.User]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

// Count returns the total number of user accounts using a server-side aggregation.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("user repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	return runCountAggregation(ctx, "users.count", client.Collection(userCollection).Query)
}

type userDocument struct {
	Email          string    `firestore:"email"`
	PasswordHash   string    `firestore:"passwordHash"`
	Name           string    `firestore:"name"`
	Phone          string    `firestore:"phone,omitempty"`
	CompanyName    string    `firestore:"companyName,omitempty"`
	TaxNumber      string    `firestore:"taxNumber,omitempty"`
	TaxOffice      string    `firestore:"taxOffice,omitempty"`
	Role           string    `firestore:"role"`
	MembershipType string    `firestore:"membershipType"`
	CreatedAt      time.Time `firestore:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt"`
}

func encodeUserDocument(user domain.User) userDocument {
	doc := userDocument{
		Email:          strings.ToLower(strings.TrimSpace(user.Email)),
		PasswordHash:   user.PasswordHash,
		Name:           strings.TrimSpace(user.Name),
		Phone:          strings.TrimSpace(user.Phone),
		CompanyName:    strings.TrimSpace(user.CompanyName),
		TaxNumber:      strings.TrimSpace(user.TaxNumber),
		TaxOffice:      strings.TrimSpace(user.TaxOffice),
		Role:           strings.ToLower(strings.TrimSpace(user.Role)),
		MembershipType: strings.ToLower(strings.TrimSpace(string(user.MembershipType))),
		CreatedAt:      user.CreatedAt.UTC(),
		UpdatedAt:      user.UpdatedAt.UTC(),
	}
	if doc.Role == "" {
		doc.Role = domain.RoleUser
	}
	if doc.MembershipType == "" {
		doc.MembershipType = string(domain.MembershipIndividual)
	}
	return doc
}

func decodeUserDocument(id string, doc userDocument, createTime, updateTime time.Time) domain.User {
	user := domain.User{
		ID:             id,
		Email:          strings.TrimSpace(doc.Email),
		PasswordHash:   doc.PasswordHash,
		Name:           strings.TrimSpace(doc.Name),
		Phone:          strings.TrimSpace(doc.Phone),
		CompanyName:    strings.TrimSpace(doc.CompanyName),
		TaxNumber:      strings.TrimSpace(doc.TaxNumber),
		TaxOffice:      strings.TrimSpace(doc.TaxOffice),
		Role:           strings.TrimSpace(doc.Role),
		MembershipType: domain.MembershipType(strings.TrimSpace(doc.MembershipType)),
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = createTime
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = updateTime
	}
	return user
}

// runCountAggregation executes a COUNT aggregation and unpacks the scalar result.
func runCountAggregation(ctx context.Context, op string, query firestore.Query) (int64, error) {
	results, err := query.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError(op, err)
	}
	raw, ok := results["count"]
	if !ok {
		return 0, pfirestore.WrapError(op, errors.New("aggregation result missing count"))
	}
	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, pfirestore.WrapError(op, fmt.Errorf("unexpected aggregation value type %T", raw))
	}
	return value.GetIntegerValue(), nil
}

func encodeCursorToken(ts time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", ts.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeCursorToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("malformed cursor token")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	docID := strings.TrimSpace(parts[1])
	if docID == "" {
		return time.Time{}, "", errors.New("cursor token missing document id")
	}
	return ts, docID, nil
}

var _ repositories.UserRepository = (*UserRepository)(nil)
