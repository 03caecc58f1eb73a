package controller

import (
	"net/http"
	"strconv"

	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/fuchsia74/apiconform/common/config"
	"github.com/fuchsia74/apiconform/common/logger"
	"github.com/fuchsia74/apiconform/model"
	"github.com/fuchsia74/apiconform/runner"
	"github.com/fuchsia74/apiconform/suite"
	"github.com/fuchsia74/apiconform/transport"
)

// ListRuns returns recent persisted runs, newest first.
func ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := model.ListRuns(limit)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    runs,
	})
}

// GetRun returns one run with its ordered case results.
func GetRun(c *gin.Context) {
	run, results, err := model.GetRun(c.Param("id"))
	if err != nil {
		abortError(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"run":     run,
			"results": results,
		},
	})
}

// DeleteRun removes one run and its case results.
func DeleteRun(c *gin.Context) {
	if err := model.DeleteRun(c.Param("id")); err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type executeRequest struct {
	// Suites filters by suite name; empty means every loadable suite in the
	// suite directory.
	Suites []string `json:"suites"`
}

// ExecuteSuites loads the configured suite directory, runs the requested
// suites synchronously, persists each run, and returns the stored run ids.
func ExecuteSuites(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		abortError(c, http.StatusBadRequest, err)
		return
	}

	suites, err := suite.LoadDir(config.SuiteDir)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	if len(req.Suites) > 0 {
		wanted := make(map[string]struct{}, len(req.Suites))
		for _, name := range req.Suites {
			wanted[name] = struct{}{}
		}
		filtered := suites[:0]
		for _, s := range suites {
			if _, ok := wanted[s.Name]; ok {
				filtered = append(filtered, s)
			}
		}
		suites = filtered
	}
	if len(suites) == 0 {
		abortMessage(c, http.StatusNotFound, "no matching suites")
		return
	}

	runs := runner.RunSuites(c.Request.Context(), suites, transport.NewHTTP(), config.SuiteConcurrency, logger.Logger)

	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		if run.Err != nil {
			continue
		}
		id, err := model.SaveRun(run)
		if err != nil {
			logger.Logger.Warn("persist run failed",
				zap.String("suite", run.Suite.Name),
				zap.Error(err),
			)
			continue
		}
		ids = append(ids, id)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"run_ids": ids},
	})
}

func abortError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"success": false,
		"message": err.Error(),
	})
}

func abortMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
