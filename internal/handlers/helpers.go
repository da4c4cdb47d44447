package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kurumsal-tedarikci/api/internal/platform/httpx"
	"github.com/kurumsal-tedarikci/api/internal/platform/observability"
	"github.com/kurumsal-tedarikci/api/internal/services"
)

const (
	maxRequestBodySize = 64 * 1024

	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxRequestBodySize
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

// decodeValid unmarshals the request body into dst and runs struct validation.
func decodeValid(r *http.Request, dst any) error {
	body, err := readLimitedBody(r, maxRequestBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fmt.Errorf("missing or invalid fields: %s", strings.Join(fields, ", "))
}

// writeInternalError answers an unmapped service failure with fixed generic
// text. The underlying error goes to the request-scoped logger only; its
// message never reaches the response body.
func writeInternalError(ctx context.Context, w http.ResponseWriter, code, message string, err error) {
	observability.FromContext(ctx).Error("unhandled service error",
		zap.String("code", code),
		zap.Error(err),
	)
	httpx.WriteError(ctx, w, httpx.NewError(code, message, http.StatusInternalServerError))
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	code := "invalid_request"
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
		code = "payload_too_large"
	}
	httpx.WriteError(r.Context(), w, httpx.NewError(code, err.Error(), status))
}

func parsePagination(r *http.Request) (services.Pagination, error) {
	query := r.URL.Query()
	pageSize := defaultPageSize
	if raw := strings.TrimSpace(query.Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return services.Pagination{}, errors.New("page_size must be an integer")
		}
		switch {
		case size <= 0:
			pageSize = defaultPageSize
		case size > maxPageSize:
			pageSize = maxPageSize
		default:
			pageSize = size
		}
	}
	return services.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	}, nil
}

// rateKey derives the throttle bucket for a request from the client address
// left in place by the RealIP middleware.
func rateKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
