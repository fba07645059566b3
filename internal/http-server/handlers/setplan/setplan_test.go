package setplan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/linkedrite/linkedrite/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) SetPlan(ctx context.Context, userUID string, plan models.Plan) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(t *testing.T, svc *ServiceMock, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := chi.NewRouter()
	r.Put("/admin/users/{uid}/plan", New(newNoopLogger(), svc).ServeHTTP)

	req := httptest.NewRequest(http.MethodPut, "/admin/users/"+uid+"/plan", &buf)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandler_ServeHTTP(t *testing.T) {
	t.Run("upgrade to premium", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("SetPlan", mock.Anything, "uid-1", models.PlanPremium).
			Return(&models.Subscription{UserUID: "uid-1", Plan: models.PlanPremium, IsActive: true}, nil).Once()

		rr := doRequest(t, svc, "uid-1", Request{Plan: "PREMIUM"})
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "PREMIUM")
		svc.AssertExpectations(t)
	})

	t.Run("downgrade to free", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("SetPlan", mock.Anything, "uid-1", models.PlanFree).
			Return(&models.Subscription{UserUID: "uid-1", Plan: models.PlanFree, IsActive: true}, nil).Once()

		rr := doRequest(t, svc, "uid-1", Request{Plan: "FREE"})
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("unknown plan fails validation", func(t *testing.T) {
		svc := new(ServiceMock)
		rr := doRequest(t, svc, "uid-1", Request{Plan: "GOLD"})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		svc.AssertNotCalled(t, "SetPlan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed json", func(t *testing.T) {
		rr := doRequest(t, new(ServiceMock), "uid-1", "{not-json")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("service error", func(t *testing.T) {
		svc := new(ServiceMock)
		svc.On("SetPlan", mock.Anything, "uid-1", models.PlanPremium).
			Return(nil, errors.New("db error")).Once()

		rr := doRequest(t, svc, "uid-1", Request{Plan: "PREMIUM"})
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
