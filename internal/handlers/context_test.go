package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanstork/workforce-api/internal/models"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: invitation inv-1", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: invitation inv-1 is accepted", models.ErrInvalidState), http.StatusConflict},
		{fmt.Errorf("%w: comment is required", models.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: belongs to another user", models.ErrForbidden), http.StatusForbidden},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, zerolog.Nop(), tc.err, "load invitation")
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}

	rec := httptest.NewRecorder()
	writeError(rec, zerolog.Nop(), errors.New("pq: password authentication failed"), "load invitation")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Reason string `json:"reason"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"late"}`))
	assert.True(t, decodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "late", dst.Reason)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.True(t, decodeJSON(httptest.NewRecorder(), req, &dst))

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":`))
	assert.False(t, decodeJSON(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5", nil)
	assert.Equal(t, 5, queryLimit(req, 25))

	req = httptest.NewRequest(http.MethodGet, "/?limit=-1", nil)
	assert.Equal(t, 25, queryLimit(req, 25))
}

func TestPathIDRejectsMalformedIDs(t *testing.T) {
	const id = "5b1e7c2a-3d4f-4e6a-8b9c-0d1e2f3a4b5c"

	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"paymentID": id})
	got, ok := pathID(httptest.NewRecorder(), req, "paymentID", "payment")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	for _, raw := range []string{"abc", "", "5b1e7c2a-3d4f-4e6a-8b9c", "1; DROP TABLE payments"} {
		rec := httptest.NewRecorder()
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"paymentID": raw})
		_, ok := pathID(rec, req, "paymentID", "payment")
		assert.False(t, ok, raw)
		assert.Equal(t, http.StatusNotFound, rec.Code, raw)
		assert.Contains(t, rec.Body.String(), "payment not found")
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("2025-06-10T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 8, d.Hour())

	d, err = parseDate(" ")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = parseDate("10/06/2025")
	assert.Error(t, err)
}
