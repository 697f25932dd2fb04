package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/service"
)

func passThrough(next http.Handler) http.Handler { return next }

var openGates = Gates{Read: passThrough, Write: passThrough, Admin: passThrough}

type registrar interface {
	Register(r chi.Router, g Gates)
}

func newRouter(handlers ...registrar) chi.Router {
	r := chi.NewRouter()
	for _, h := range handlers {
		h.Register(r, openGates)
	}
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type mockVersions struct {
	snap service.VersionSnapshot
}

func (m *mockVersions) Snapshot() service.VersionSnapshot { return m.snap }

type mockIngester struct{ mock.Mock }

func (m *mockIngester) Ingest(ctx context.Context, p model.EventPayload) (*service.IngestResult, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type mockRegistrar struct{ mock.Mock }

func (m *mockRegistrar) Register(ctx context.Context, req model.RegisterPushRequest) error {
	return m.Called(ctx, req).Error(0)
}

type mockQuery struct{ mock.Mock }

func (m *mockQuery) Devices(ctx context.Context) ([]model.Device, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Device), args.Error(1)
}

func (m *mockQuery) DeviceSessions(ctx context.Context, deviceID string, status model.SessionStatus, limit int) ([]model.Session, error) {
	args := m.Called(ctx, deviceID, status, limit)
	return args.Get(0).([]model.Session), args.Error(1)
}

func (m *mockQuery) Sessions(ctx context.Context, params model.ListSessionsParams) (*service.SessionPage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SessionPage), args.Error(1)
}

func (m *mockQuery) SessionEvents(ctx context.Context, sessionID string, limit int) ([]model.EventListItem, error) {
	args := m.Called(ctx, sessionID, limit)
	return args.Get(0).([]model.EventListItem), args.Error(1)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) List(ctx context.Context, after string, limit int) ([]model.Notification, error) {
	args := m.Called(ctx, after, limit)
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *mockNotifications) Acknowledge(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

type mockKeys struct{ mock.Mock }

func (m *mockKeys) Create(ctx context.Context, req model.CreateAPIKeyRequest) (*model.CreatedAPIKey, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreatedAPIKey), args.Error(1)
}

func (m *mockKeys) List(ctx context.Context) ([]model.APIKey, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *mockKeys) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
