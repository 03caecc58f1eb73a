package model

import (
	"encoding/json"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuchsia74/apiconform/runner"
)

// Run is one persisted suite execution.
type Run struct {
	Id        int    `json:"id" gorm:"primaryKey"`
	RunId     string `json:"run_id" gorm:"type:varchar(36);uniqueIndex"`
	Suite     string `json:"suite" gorm:"index"`
	Provider  string `json:"provider" gorm:"index"`
	Endpoint  string `json:"endpoint"`
	CreatedAt int64  `json:"created_at" gorm:"bigint;index"`
	Total     int    `json:"total"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
}

// CaseResult is one persisted case record within a run. Evidence and the
// validation report serialize as JSON text, mirroring the in-memory record.
type CaseResult struct {
	Id                 int    `json:"id" gorm:"primaryKey"`
	RunId              string `json:"run_id" gorm:"type:varchar(36);index"`
	CaseName           string `json:"case_name"`
	ParameterUnderTest string `json:"parameter_under_test" gorm:"default:''"`
	Streaming          bool   `json:"streaming" gorm:"default:false"`
	StatusCode         int    `json:"status_code" gorm:"default:0"`
	LatencyMs          int64  `json:"latency_ms" gorm:"default:0"`
	Status             string `json:"status" gorm:"index"`
	FailStage          string `json:"fail_stage" gorm:"default:''"`
	ReasonCode         string `json:"reason_code" gorm:"default:''"`
	Reason             string `json:"reason" gorm:"type:text"`
	Evidence           string `json:"evidence" gorm:"type:text"`
	Validation         string `json:"validation" gorm:"type:text"`
}

// SaveRun persists one suite run with its ordered case records and returns
// the generated run id.
func SaveRun(run runner.SuiteRun) (string, error) {
	runID := uuid.NewString()
	row := &Run{
		RunId:     runID,
		Suite:     run.Suite.Name,
		Provider:  run.Suite.Provider,
		Endpoint:  run.Suite.Endpoint,
		CreatedAt: time.Now().Unix(),
		Total:     len(run.Records),
	}

	results := make([]CaseResult, 0, len(run.Records))
	for _, rec := range run.Records {
		if rec.Status == runner.StatusPass {
			row.Passed++
		} else {
			row.Failed++
		}
		cr := CaseResult{
			RunId:              runID,
			CaseName:           rec.Case,
			ParameterUnderTest: rec.ParameterUnderTest,
			Streaming:          rec.Streaming,
			StatusCode:         rec.Request.StatusCode,
			LatencyMs:          rec.Request.Latency.Milliseconds(),
			Status:             string(rec.Status),
			FailStage:          string(rec.FailStage),
			ReasonCode:         rec.ReasonCode,
			Reason:             rec.Reason,
		}
		if rec.Unsupported != nil {
			encoded, err := json.Marshal(rec.Unsupported)
			if err != nil {
				return "", errors.Wrap(err, "encode evidence")
			}
			cr.Evidence = string(encoded)
		}
		if rec.Validation != nil {
			// raw responses stay out of the store; the field results are the
			// durable part of a validation report
			report := *rec.Validation
			report.RawResponse = nil
			encoded, err := json.Marshal(&report)
			if err != nil {
				return "", errors.Wrap(err, "encode validation report")
			}
			cr.Validation = string(encoded)
		}
		results = append(results, cr)
	}

	err := DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return errors.Wrap(err, "insert run")
		}
		if len(results) == 0 {
			return nil
		}
		if err := tx.Create(&results).Error; err != nil {
			return errors.Wrap(err, "insert case results")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// GetRun loads one run and its ordered case results.
func GetRun(runID string) (*Run, []CaseResult, error) {
	var run Run
	if err := DB.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, nil, errors.Wrapf(err, "load run %s", runID)
	}
	var results []CaseResult
	if err := DB.Where("run_id = ?", runID).Order("id asc").Find(&results).Error; err != nil {
		return nil, nil, errors.Wrapf(err, "load results for run %s", runID)
	}
	return &run, results, nil
}

// ListRuns returns recent runs, newest first.
func ListRuns(limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	var runs []Run
	if err := DB.Order("id desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	return runs, nil
}

// DeleteRun removes one run and its case results.
func DeleteRun(runID string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&CaseResult{}).Error; err != nil {
			return errors.Wrapf(err, "delete results for run %s", runID)
		}
		if err := tx.Where("run_id = ?", runID).Delete(&Run{}).Error; err != nil {
			return errors.Wrapf(err, "delete run %s", runID)
		}
		return nil
	})
}
