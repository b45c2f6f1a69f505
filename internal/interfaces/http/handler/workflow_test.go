package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/application/allocation"
	appintegration "github.com/omnisync/backend/internal/application/integration"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workflowRequest() allocation.WorkflowRequest {
	return allocation.WorkflowRequest{
		Name:         "naver half",
		ScheduleType: "daily",
		ScheduleTime: "09:30",
		Percent:      50,
		Channel:      "naver",
	}
}

func createWorkflow(t *testing.T, f *fixture) allocation.WorkflowResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/workflows", workflowRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[allocation.WorkflowResponse](t, w)
}

func TestWorkflowHandler_CRUD(t *testing.T) {
	f := newFixture(t)
	created := createWorkflow(t, f)
	assert.True(t, created.IsActive)
	assert.NotNil(t, created.NextRunAt)
	assert.Equal(t, []int{}, created.ScheduleDays)

	w := f.do(t, http.MethodGet, "/workflows/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "naver half", decodeData[allocation.WorkflowResponse](t, w).Name)

	req := workflowRequest()
	req.ScheduleType = "weekly"
	req.ScheduleDays = []int{1, 3}
	req.Percent = 80
	w = f.do(t, http.MethodPut, "/workflows/"+created.ID.String(), req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeData[allocation.WorkflowResponse](t, w)
	assert.Equal(t, 80, updated.Percent)
	assert.Equal(t, []int{1, 3}, updated.ScheduleDays)

	w = f.do(t, http.MethodPost, "/workflows/"+created.ID.String()+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeData[allocation.WorkflowResponse](t, w).IsActive)

	w = f.do(t, http.MethodGet, "/workflows", nil)
	assert.Len(t, decodeData[[]allocation.WorkflowResponse](t, w), 1)

	w = f.do(t, http.MethodDelete, "/workflows/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/workflows/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowHandler_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*allocation.WorkflowRequest)
		field  string
	}{
		{"bad time", func(r *allocation.WorkflowRequest) { r.ScheduleTime = "25:00" }, "scheduleTime"},
		{"percent over 100", func(r *allocation.WorkflowRequest) { r.Percent = 101 }, "percent"},
		{"unknown channel", func(r *allocation.WorkflowRequest) { r.Channel = "amazon" }, "channel"},
		{"bad weekday", func(r *allocation.WorkflowRequest) { r.ScheduleDays = []int{7} }, "scheduleDays[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := workflowRequest()
			tt.mutate(&req)
			w := f.do(t, http.MethodPost, "/workflows", req)
			require.Equal(t, http.StatusBadRequest, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
			require.NotEmpty(t, env.Error.Details)
			assert.Equal(t, tt.field, env.Error.Details[0].Field)
		})
	}

	w := f.do(t, http.MethodGet, "/workflows/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/workflows/"+uuid.NewString()+"/logs", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowHandler_RunAndLogs(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/mappings", appintegration.OptionMappingRequest{
		Channel: "naver", ProductNo: "P1", OptionID: "O1", SKU: "SKU-A",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	wf := createWorkflow(t, f)

	w = f.do(t, http.MethodPost, "/workflows/"+wf.ID.String()+"/run", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	l := decodeData[allocation.LogResponse](t, w)
	assert.Equal(t, "success", l.Status)
	assert.Equal(t, 1, l.OptionsUpdated)
	require.Len(t, l.Details, 1)
	assert.Equal(t, 5, l.Details[0].Target)

	require.Len(t, f.naver.pushed, 1)
	assert.Equal(t, 5, f.naver.pushed[0].Quantity)

	w = f.do(t, http.MethodGet, "/workflows/"+wf.ID.String()+"/logs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decodeData[[]allocation.LogResponse](t, w)
	require.Len(t, logs, 1)
	assert.Equal(t, l.ID, logs[0].ID)

	w = f.do(t, http.MethodGet, "/workflows/"+wf.ID.String()+"/logs?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
