package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fuchsia74/apiconform/runner"
	"github.com/fuchsia74/apiconform/schema"
	"github.com/fuchsia74/apiconform/suite"
)

// setupTestDB swaps the package store for an in-memory SQLite database for
// the duration of one test.
func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Run{}, &CaseResult{}))

	prev := DB
	DB = db
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
		DB = prev
	})
}

func sampleRun() runner.SuiteRun {
	return runner.SuiteRun{
		Suite: &suite.Suite{
			Name:     "chat",
			Provider: "openai",
			Endpoint: "/v1/chat/completions",
		},
		Records: []runner.Record{
			{
				Suite:  "chat",
				Case:   "basic",
				Status: runner.StatusPass,
				Request: runner.RequestOutcome{
					StatusCode: 200,
					Latency:    1500 * time.Millisecond,
				},
				Validation: &schema.Report{
					Success:     true,
					RawResponse: []byte(`{"id": "cmpl-1"}`),
				},
			},
			{
				Suite:              "chat",
				Case:               "temperature[2]",
				ParameterUnderTest: "temperature",
				Status:             runner.StatusFail,
				FailStage:          runner.StageRequest,
				ReasonCode:         runner.ReasonHTTPError,
				Reason:             `HTTP 400: {"error": "invalid temperature"}`,
				Request:            runner.RequestOutcome{StatusCode: 400},
				Unsupported: &runner.Evidence{
					Name:   "temperature",
					Value:  2.0,
					Reason: `HTTP 400: {"error": "invalid temperature"}`,
				},
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	setupTestDB(t)

	runID, err := SaveRun(sampleRun())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, results, err := GetRun(runID)
	require.NoError(t, err)
	require.Equal(t, "chat", run.Suite)
	require.Equal(t, 2, run.Total)
	require.Equal(t, 1, run.Passed)
	require.Equal(t, 1, run.Failed)

	require.Len(t, results, 2)
	require.Equal(t, "basic", results[0].CaseName)
	require.Equal(t, int64(1500), results[0].LatencyMs)
	require.Contains(t, results[0].Validation, `"success":true`)
	require.NotContains(t, results[0].Validation, "cmpl-1",
		"raw responses must not be persisted")

	require.Equal(t, "temperature[2]", results[1].CaseName)
	require.Equal(t, string(runner.StageRequest), results[1].FailStage)
	require.Contains(t, results[1].Evidence, `"name":"temperature"`)
}

func TestListRunsNewestFirst(t *testing.T) {
	setupTestDB(t)

	first, err := SaveRun(sampleRun())
	require.NoError(t, err)
	second, err := SaveRun(sampleRun())
	require.NoError(t, err)

	runs, err := ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, second, runs[0].RunId)
	require.Equal(t, first, runs[1].RunId)
}

func TestDeleteRunRemovesResults(t *testing.T) {
	setupTestDB(t)

	runID, err := SaveRun(sampleRun())
	require.NoError(t, err)
	require.NoError(t, DeleteRun(runID))

	_, _, err = GetRun(runID)
	require.Error(t, err)

	var count int64
	require.NoError(t, DB.Model(&CaseResult{}).Where("run_id = ?", runID).Count(&count).Error)
	require.Zero(t, count)
}

func TestSaveRunEmptyRecords(t *testing.T) {
	setupTestDB(t)

	runID, err := SaveRun(runner.SuiteRun{Suite: &suite.Suite{Name: "empty", Provider: "local"}})
	require.NoError(t, err)

	run, results, err := GetRun(runID)
	require.NoError(t, err)
	require.Zero(t, run.Total)
	require.Empty(t, results)
}
