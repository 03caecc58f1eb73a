package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fuchsia74/apiconform/model"
	"github.com/fuchsia74/apiconform/runner"
	"github.com/fuchsia74/apiconform/suite"
)

func setupTestAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Run{}, &model.CaseResult{}))
	prev := model.DB
	model.DB = db
	t.Cleanup(func() { model.DB = prev })

	engine := gin.New()
	engine.GET("/api/runs", ListRuns)
	engine.GET("/api/runs/:id", GetRun)
	engine.DELETE("/api/runs/:id", DeleteRun)
	return engine
}

func storedRun(t *testing.T) string {
	t.Helper()
	id, err := model.SaveRun(runner.SuiteRun{
		Suite: &suite.Suite{Name: "chat", Provider: "openai", Endpoint: "/v1/chat/completions"},
		Records: []runner.Record{
			{Case: "basic", Status: runner.StatusPass, Request: runner.RequestOutcome{StatusCode: 200}},
		},
	})
	require.NoError(t, err)
	return id
}

func doRequest(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestListRunsEndpoint(t *testing.T) {
	engine := setupTestAPI(t)
	storedRun(t)

	w := doRequest(engine, http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool        `json:"success"`
		Data    []model.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Len(t, body.Data, 1)
	require.Equal(t, "chat", body.Data[0].Suite)
}

func TestGetRunEndpoint(t *testing.T) {
	engine := setupTestAPI(t)
	id := storedRun(t)

	w := doRequest(engine, http.MethodGet, "/api/runs/"+id)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Run     model.Run          `json:"run"`
			Results []model.CaseResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, id, body.Data.Run.RunId)
	require.Len(t, body.Data.Results, 1)
}

func TestGetRunNotFound(t *testing.T) {
	engine := setupTestAPI(t)

	w := doRequest(engine, http.MethodGet, "/api/runs/no-such-id")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRunEndpoint(t *testing.T) {
	engine := setupTestAPI(t)
	id := storedRun(t)

	w := doRequest(engine, http.MethodDelete, "/api/runs/"+id)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodGet, "/api/runs/"+id)
	require.Equal(t, http.StatusNotFound, w.Code)
}
