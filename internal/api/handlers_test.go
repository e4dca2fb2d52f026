package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fieldactivity/internal/auth"
	"example.com/fieldactivity/internal/domain"
	memrepo "example.com/fieldactivity/internal/persistence/memory"
	memstore "example.com/fieldactivity/internal/storage/memory"
)

var (
	alice = &auth.Claims{Subject: "alice", Role: domain.RoleUser}
	bob   = &auth.Claims{Subject: "bob", Role: domain.RoleUser}
	root  = &auth.Claims{Subject: "root", Role: domain.RoleAdmin}
)

type testServer struct {
	mux   *http.ServeMux
	store *memstore.Store
}

func newTestServer(t *testing.T, store domain.AttachmentStore) testServer {
	t.Helper()
	now := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := domain.ClockFunc(func() time.Time { return now })
	mem := memstore.NewStore("http://files.test")
	if store == nil {
		store = mem
	}
	svc := domain.NewService(memrepo.NewRepository(memrepo.WithClock(clock)), store,
		domain.WithClock(clock),
		domain.WithCalendar(domain.Calendar{Location: time.UTC, WeekStart: time.Monday}),
	)
	mux := http.NewServeMux()
	NewHandler(svc).RegisterRoutes(mux)
	return testServer{mux: mux, store: mem}
}

func (s testServer) do(t *testing.T, claims *auth.Claims, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func (s testServer) doJSON(t *testing.T, claims *auth.Claims, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return s.do(t, claims, method, path, body, "application/json")
}

func activityPayload(overrides map[string]any) map[string]any {
	p := map[string]any{
		"activity_date": "2024-03-14",
		"activity_time": "09:30",
		"client_name":   "Acme",
		"activity_type": "visit",
		"status":        "pending",
		"description":   "Quarterly review",
	}
	for k, v := range overrides {
		p[k] = v
	}
	return p
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (s testServer) create(t *testing.T, claims *auth.Claims, overrides map[string]any) ActivityView {
	t.Helper()
	rr := s.doJSON(t, claims, http.MethodPost, "/v1/activities", activityPayload(overrides))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[MessageResponse](t, rr).Data
}

func TestCreateActivityJSON(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.doJSON(t, alice, http.MethodPost, "/v1/activities", activityPayload(map[string]any{"location": "Berlin", "user_id": "mallory"}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decode[MessageResponse](t, rr)
	require.Equal(t, "Activity created successfully", resp.Message)
	require.NotEmpty(t, resp.Data.ID)
	require.Equal(t, "alice", resp.Data.UserID)
	require.Equal(t, "2024-03-14", resp.Data.ActivityDate)
	require.Equal(t, "09:30:00", resp.Data.ActivityTime)
	require.Equal(t, "Berlin", *resp.Data.Location)
	require.Nil(t, resp.Data.DealValue)
	require.NotNil(t, resp.Data.Attachments)
}

func TestCreateActivityValidationErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.doJSON(t, alice, http.MethodPost, "/v1/activities", map[string]any{"status": "won"})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	resp := decode[ErrorResponse](t, rr)
	require.Equal(t, "validation_failed", resp.Type)
	require.Equal(t, []string{"must be one of: success, pending, followup, closed"}, resp.Errors["status"])
	require.Equal(t, []string{"is required"}, resp.Errors["client_name"])
}

func TestCreateActivityMalformedJSON(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, alice, http.MethodPost, "/v1/activities", strings.NewReader("{"), "application/json")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateActivityMultipartWithAttachments(t *testing.T) {
	s := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range activityPayload(map[string]any{"deal_value": ""}) {
		require.NoError(t, mw.WriteField(k, v.(string)))
	}
	for _, name := range []string{"photo.jpg", "notes.txt"} {
		part, err := mw.CreateFormFile("attachments", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	rr := s.do(t, alice, http.MethodPost, "/v1/activities", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	view := decode[MessageResponse](t, rr).Data
	require.Nil(t, view.DealValue)
	require.Len(t, view.Attachments, 2)
	require.Equal(t, "photo.jpg", view.Attachments[0].OriginalName)
	require.Equal(t, "notes.txt", view.Attachments[1].OriginalName)
	require.True(t, strings.HasPrefix(view.Attachments[0].URL, "http://files.test/activity-attachments/"))

	data, ok := s.store.Object(view.Attachments[1].StoragePath)
	require.True(t, ok)
	require.Equal(t, "content of notes.txt", string(data))
}

type failingStore struct{}

func (failingStore) Store(context.Context, domain.Upload) (domain.StoredObject, error) {
	return domain.StoredObject{}, errors.New("bucket offline")
}

func (failingStore) URLFor(_ context.Context, path string) (string, error) {
	return "http://files.test/" + path, nil
}

func TestCreateActivityAttachmentFailure(t *testing.T) {
	s := newTestServer(t, failingStore{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range activityPayload(nil) {
		require.NoError(t, mw.WriteField(k, v.(string)))
	}
	part, err := mw.CreateFormFile("attachments", "photo.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg"))
	require.NoError(t, mw.Close())

	rr := s.do(t, alice, http.MethodPost, "/v1/activities", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusBadGateway, rr.Code)

	list := decode[ListActivitiesResponse](t, s.do(t, alice, http.MethodGet, "/v1/activities", nil, ""))
	require.Zero(t, list.Total)
}

func TestGetUpdateDeleteOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	created := s.create(t, alice, nil)
	path := "/v1/activities/" + created.ID

	require.Equal(t, http.StatusForbidden, s.doJSON(t, bob, http.MethodGet, path, nil).Code)
	require.Equal(t, http.StatusForbidden, s.doJSON(t, bob, http.MethodPut, path, map[string]any{"status": "closed"}).Code)
	require.Equal(t, http.StatusForbidden, s.doJSON(t, bob, http.MethodDelete, path, nil).Code)
	require.Equal(t, http.StatusNotFound, s.doJSON(t, bob, http.MethodGet, "/v1/activities/missing", nil).Code)

	rr := s.doJSON(t, alice, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	require.NotContains(t, raw, "data", "a single activity is returned unwrapped")
	fetched := decode[ActivityView](t, rr)
	require.Equal(t, created.ID, fetched.ID)
	require.Equal(t, "Acme", fetched.ClientName)

	rr = s.doJSON(t, alice, http.MethodPatch, path, map[string]any{"status": "closed", "deal_value": "12000"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[MessageResponse](t, rr)
	require.Equal(t, "Activity updated successfully", updated.Message)
	require.Equal(t, "closed", updated.Data.Status)
	require.Equal(t, "Acme", updated.Data.ClientName)

	rr = s.doJSON(t, alice, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, decode[DeleteResponse](t, rr).Success)

	require.Equal(t, http.StatusNotFound, s.doJSON(t, alice, http.MethodGet, path, nil).Code)
	require.Equal(t, http.StatusNotFound, s.doJSON(t, alice, http.MethodDelete, path, nil).Code)
}

func TestUpdateWithEmptyBody(t *testing.T) {
	s := newTestServer(t, nil)
	created := s.create(t, alice, nil)

	rr := s.do(t, alice, http.MethodPut, "/v1/activities/"+created.ID, nil, "application/json")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, created.ClientName, decode[MessageResponse](t, rr).Data.ClientName)
}

func TestListActivitiesPagination(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 21; i++ {
		s.create(t, alice, nil)
	}
	s.create(t, alice, map[string]any{"activity_date": "2024-03-13"})
	s.create(t, bob, nil)

	list := decode[ListActivitiesResponse](t, s.do(t, alice, http.MethodGet, "/v1/activities?page=2", nil, ""))
	require.Equal(t, 22, list.Total)
	require.Equal(t, 2, list.Page)
	require.Equal(t, 20, list.PageSize)
	require.Equal(t, 2, list.LastPage)
	require.Len(t, list.Items, 2)
	require.Equal(t, "2024-03-13", list.Items[1].ActivityDate)

	list = decode[ListActivitiesResponse](t, s.do(t, alice, http.MethodGet, "/v1/activities?filter=today&page=abc", nil, ""))
	require.Equal(t, 21, list.Total)
	require.Equal(t, 1, list.Page)
}

func TestStatisticsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(t, alice, map[string]any{"client_name": "Acme"})
	s.create(t, alice, map[string]any{"client_name": "Acme", "status": "followup"})
	s.create(t, alice, map[string]any{"client_name": "Beta", "status": "closed", "deal_value": "100"})

	rr := s.do(t, alice, http.MethodGet, "/v1/activities/statistics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"today":3,"week":3,"month":3,"followup_pending":1,"clients_visited":2,"total_deal_value":1}}`, rr.Body.String())
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(t, alice, nil)
	s.create(t, bob, nil)

	require.Equal(t, http.StatusForbidden, s.do(t, alice, http.MethodGet, "/v1/admin/activities", nil, "").Code)
	require.Equal(t, http.StatusForbidden, s.do(t, alice, http.MethodGet, "/v1/admin/statistics", nil, "").Code)

	list := decode[ListActivitiesResponse](t, s.do(t, root, http.MethodGet, "/v1/admin/activities", nil, ""))
	require.Equal(t, 2, list.Total)

	stats := decode[StatisticsResponse](t, s.do(t, root, http.MethodGet, "/v1/admin/statistics", nil, ""))
	require.Equal(t, 2, stats.Data.Today)
}

func TestUnauthenticatedRequest(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(t, nil, http.MethodGet, "/v1/activities", nil, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, nil, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
}
