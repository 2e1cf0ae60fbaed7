package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kiln_controller/internal/models"
	"kiln_controller/internal/profile"
	"kiln_controller/internal/repository"
	"kiln_controller/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockKiln struct {
	runErr     error
	abortErr   error
	lastName   string
	lastStart  float64
	runCalls   int
	abortCalls int
}

func (m *mockKiln) RunProfile(_ context.Context, name string, startAtMinutes float64) error {
	m.runCalls++
	m.lastName = name
	m.lastStart = startAtMinutes
	return m.runErr
}
func (m *mockKiln) Abort(_ context.Context) error {
	m.abortCalls++
	return m.abortErr
}

type mockMonitoring struct {
	state    models.OvenState
	recorded models.OvenState
	err      error
}

func (m *mockMonitoring) GetState(_ context.Context) (models.OvenState, error) {
	return m.state, m.err
}
func (m *mockMonitoring) LastRecorded(_ context.Context) (models.OvenState, error) {
	return m.recorded, m.err
}

type mockEventLog struct {
	resp     []models.OvenEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.OvenEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockProfiles struct {
	items     map[string]models.Profile
	saveErr   error
	saved     []models.Profile
	importErr error
	imported  []*profile.Profile
}

func (m *mockProfiles) ListProfiles(_ context.Context) ([]models.Profile, error) {
	out := make([]models.Profile, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, p)
	}
	return out, nil
}
func (m *mockProfiles) GetProfile(_ context.Context, name string) (models.Profile, error) {
	p, ok := m.items[name]
	if !ok {
		return models.Profile{}, fmt.Errorf("%w: %q", repository.ErrProfileNotFound, name)
	}
	return p, nil
}
func (m *mockProfiles) SaveProfile(_ context.Context, p models.Profile) error {
	m.saved = append(m.saved, p)
	return m.saveErr
}
func (m *mockProfiles) DeleteProfile(_ context.Context, name string) error {
	if _, ok := m.items[name]; !ok {
		return fmt.Errorf("%w: %q", repository.ErrProfileNotFound, name)
	}
	delete(m.items, name)
	return nil
}
func (m *mockProfiles) Import(_ context.Context, ps []*profile.Profile) (int, error) {
	if m.importErr != nil {
		return 0, m.importErr
	}
	m.imported = append(m.imported, ps...)
	return len(ps), nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
