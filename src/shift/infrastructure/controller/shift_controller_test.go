package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kassa/src/shared/domain/money"
	"kassa/src/shared/infrastructure/metrics"
	"kassa/src/shared/infrastructure/server"
	"kassa/src/shift/application/usecase"
	"kassa/src/shift/domain/entity"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubShiftRepository struct {
	mu     sync.Mutex
	active map[string]*entity.Shift
	down   bool
}

func (r *stubShiftRepository) Open(_ context.Context, cashierID string, opening money.Money, note string) (*entity.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := entity.NewShift(cashierID, opening, note)
	if err != nil {
		return nil, err
	}
	r.active[cashierID] = s
	c := *s
	return &c, nil
}

func (r *stubShiftRepository) Close(_ context.Context, shiftID uuid.UUID, counted money.Money, note string) (*entity.ClosedShift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for cashier, s := range r.active {
		if s.ID == shiftID {
			delete(r.active, cashier)
			return s.Close(counted, note, time.Now())
		}
	}
	return nil, entity.ErrShiftNotFound
}

func (r *stubShiftRepository) GetActive(_ context.Context, cashierID string) (*entity.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, context.DeadlineExceeded
	}
	s, ok := r.active[cashierID]
	if !ok {
		return nil, entity.ErrNoActiveShift
	}
	c := *s
	return &c, nil
}

func (r *stubShiftRepository) AddMovement(_ context.Context, m *entity.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.active {
		if s.ID == m.ShiftID {
			return s.AddMovement(*m)
		}
	}
	return entity.ErrShiftNotFound
}

func setupShiftRouter(t *testing.T) (*gin.Engine, *stubShiftRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := &stubShiftRepository{active: make(map[string]*entity.Shift)}
	uc := usecase.NewShiftUseCase(repo, usecase.NewRolePolicy("admin"), metrics.New(nil), zap.NewNop())

	router := gin.New()
	NewShiftController(uc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router, repo
}

func call(router *gin.Engine, method, path, cashier, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cashier != "" {
		req.Header.Set(server.CashierHeader, cashier)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestShiftController_Lifecycle(t *testing.T) {
	router, _ := setupShiftRouter(t)

	w := call(router, http.MethodGet, "/api/v1/shifts/current", "cashier-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"no_active_shift","expected_cash":"0"}`, w.Body.String())

	w = call(router, http.MethodPost, "/api/v1/shifts/open", "cashier-1", `{"opening_balance":100000,"note":"morning"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(router, http.MethodPost, "/api/v1/shifts/open", "cashier-1", `{"opening_balance":0}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(router, http.MethodPost, "/api/v1/shifts/movements", "cashier-1", `{"kind":"out","amount":5000,"note":"bags"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = call(router, http.MethodPost, "/api/v1/shifts/movements", "cashier-1", `{"kind":"sideways","amount":5000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(router, http.MethodPost, "/api/v1/shifts/movements", "cashier-1", `{"kind":"in","amount":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(router, http.MethodGet, "/api/v1/shifts/current", "cashier-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var current struct {
		State        string `json:"state"`
		ExpectedCash string `json:"expected_cash"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Equal(t, "open", current.State)
	assert.Equal(t, "95000", current.ExpectedCash)

	w = call(router, http.MethodPost, "/api/v1/shifts/close", "cashier-1", `{"counted_balance":94000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var closed struct {
		Variance string `json:"variance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &closed))
	assert.Equal(t, "-1000", closed.Variance)

	w = call(router, http.MethodPost, "/api/v1/shifts/close", "cashier-1", `{"counted_balance":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestShiftController_Errors(t *testing.T) {
	router, repo := setupShiftRouter(t)

	w := call(router, http.MethodGet, "/api/v1/shifts/current", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(router, http.MethodPost, "/api/v1/shifts/movements", "cashier-1", `{"kind":"in","amount":100}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	repo.down = true
	w = call(router, http.MethodGet, "/api/v1/shifts/current", "cashier-1", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
