package attendance

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/richxcame/attendance-tracker/internal/fraud"
	"github.com/richxcame/attendance-tracker/pkg/common"
	"github.com/richxcame/attendance-tracker/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) SubmitCheckIn(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*SubmitResult)
	return res, args.Error(1)
}

func (m *mockService) SubmitCheckOut(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*SubmitResult)
	return res, args.Error(1)
}

func (m *mockService) RecordPing(ctx context.Context, req *SubmitRequest) (*PingResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*PingResult)
	return res, args.Error(1)
}

func (m *mockService) Status(ctx context.Context, employeeID uuid.UUID) (*Status, error) {
	args := m.Called(ctx, employeeID)
	res, _ := args.Get(0).(*Status)
	return res, args.Error(1)
}

func (m *mockService) ListRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]*AttendanceRecord, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	recs, _ := args.Get(0).([]*AttendanceRecord)
	total, _ := args.Get(1).(int64)
	return recs, total, args.Error(2)
}

func setupRouter(svc ServiceInterface, userID uuid.UUID, role middleware.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set("user_id", userID)
			c.Set("user_role", role)
		}
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func perform(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) common.Response {
	t.Helper()
	var resp common.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCheckInHandler_DefaultsEmployeeToUser(t *testing.T) {
	svc := new(mockService)
	user := uuid.New()

	svc.On("SubmitCheckIn", mock.Anything, mock.MatchedBy(func(req *SubmitRequest) bool {
		return req.EmployeeID == user && req.Location.Latitude == office.Latitude
	})).Return(&SubmitResult{Decision: Decision{Outcome: OutcomeAccepted, Reason: ReasonAccepted}}, nil)

	w := perform(setupRouter(svc, user, middleware.RoleEmployee), http.MethodPost, "/api/v1/attendance/check-in",
		map[string]interface{}{"location": map[string]float64{"latitude": office.Latitude, "longitude": office.Longitude, "accuracy": 5}})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
	svc.AssertExpectations(t)
}

func TestCheckInHandler_FraudRejection(t *testing.T) {
	svc := new(mockService)
	user := uuid.New()

	svc.On("SubmitCheckIn", mock.Anything, mock.Anything).Return(nil, &RejectionError{Decision: Decision{
		Outcome:  OutcomeRejectedFraud,
		Reason:   fraud.ReasonExcessiveSpeed,
		Severity: fraud.SeverityHigh,
		Risk:     speedRisk(),
	}})

	w := perform(setupRouter(svc, user, middleware.RoleEmployee), http.MethodPost, "/api/v1/attendance/check-in",
		map[string]interface{}{"location": map[string]float64{"latitude": office.Latitude, "longitude": office.Longitude}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Error)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "REJECTED_FRAUD", details["outcome"])
	assert.Equal(t, "excessive_speed", details["reason"])
	assert.Equal(t, "HIGH", details["severity"])
	assert.Equal(t, "gps_jump", details["fraud_type"])
}

func TestCheckOutHandler_OtherEmployeeForbidden(t *testing.T) {
	svc := new(mockService)

	w := perform(setupRouter(svc, uuid.New(), middleware.RoleEmployee), http.MethodPost, "/api/v1/attendance/check-out",
		map[string]interface{}{"employee_id": uuid.NewString(), "location": map[string]float64{"latitude": 1, "longitude": 1}})

	assert.Equal(t, http.StatusForbidden, w.Code)
	svc.AssertNotCalled(t, "SubmitCheckOut", mock.Anything, mock.Anything)
}

func TestCheckOutHandler_ManagerMaySubmitForEmployee(t *testing.T) {
	svc := new(mockService)
	employee := uuid.New()

	svc.On("SubmitCheckOut", mock.Anything, mock.MatchedBy(func(req *SubmitRequest) bool {
		return req.EmployeeID == employee
	})).Return(&SubmitResult{Decision: Decision{Outcome: OutcomeAccepted}}, nil)

	w := perform(setupRouter(svc, uuid.New(), middleware.RoleManager), http.MethodPost, "/api/v1/attendance/check-out",
		map[string]interface{}{"employee_id": employee, "location": map[string]float64{"latitude": 1, "longitude": 1}})

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestSubmitHandlers_RequireUser(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(svc, uuid.Nil, "")

	for _, path := range []string{"/api/v1/attendance/check-in", "/api/v1/attendance/check-out", "/api/v1/attendance/location"} {
		w := perform(r, http.MethodPost, path, map[string]interface{}{})
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestCheckInHandler_NegativeAccuracy(t *testing.T) {
	svc := new(mockService)

	w := perform(setupRouter(svc, uuid.New(), middleware.RoleEmployee), http.MethodPost, "/api/v1/attendance/check-in",
		map[string]interface{}{"location": map[string]float64{"latitude": 1, "longitude": 1, "accuracy": -3}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SubmitCheckIn", mock.Anything, mock.Anything)
}

func TestUpdateLocationHandler(t *testing.T) {
	svc := new(mockService)
	user := uuid.New()
	result := &PingResult{LocationID: uuid.New(), IsSuspicious: true, FraudType: fraud.CheckGPSJump, RiskLevel: 0.8}

	svc.On("RecordPing", mock.Anything, mock.Anything).Return(result, nil)

	w := perform(setupRouter(svc, user, middleware.RoleEmployee), http.MethodPost, "/api/v1/attendance/location",
		map[string]interface{}{"location": map[string]float64{"latitude": 1, "longitude": 1}})

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, true, data["is_suspicious"])
	assert.Equal(t, "gps_jump", data["fraud_type"])
}

func TestGetStatusHandler(t *testing.T) {
	svc := new(mockService)
	user := uuid.New()
	svc.On("Status", mock.Anything, user).Return(&Status{EmployeeID: user, IsCheckedIn: true}, nil)

	w := perform(setupRouter(svc, user, middleware.RoleEmployee), http.MethodGet, "/api/v1/attendance/status/"+user.String(), nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, true, data["is_checked_in"])
}

func TestGetStatusHandler_Forbidden(t *testing.T) {
	svc := new(mockService)

	w := perform(setupRouter(svc, uuid.New(), middleware.RoleEmployee), http.MethodGet, "/api/v1/attendance/status/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetStatusHandler_InvalidID(t *testing.T) {
	svc := new(mockService)

	w := perform(setupRouter(svc, uuid.New(), middleware.RoleManager), http.MethodGet, "/api/v1/attendance/status/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRecordsHandler(t *testing.T) {
	svc := new(mockService)
	user := uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	svc.On("ListRecords", mock.Anything, mock.MatchedBy(func(f RecordFilter) bool {
		return f.EmployeeID != nil && *f.EmployeeID == user && f.Kind == KindCheckIn &&
			f.From != nil && f.From.Equal(from) && f.To == nil
	}), 5, 10).Return([]*AttendanceRecord{{ID: uuid.New()}}, int64(11), nil)

	w := perform(setupRouter(svc, user, middleware.RoleEmployee), http.MethodGet,
		"/api/v1/attendance/records?kind=check_in&limit=5&offset=10&from=2024-03-01T00:00:00Z", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(11), resp.Meta.Total)
	svc.AssertExpectations(t)
}

func TestListRecordsHandler_BadInput(t *testing.T) {
	svc := new(mockService)
	r := setupRouter(svc, uuid.New(), middleware.RoleManager)

	for _, query := range []string{"kind=ping", "employee_id=x", "from=yesterday"} {
		w := perform(r, http.MethodGet, "/api/v1/attendance/records?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	svc.AssertNotCalled(t, "ListRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
