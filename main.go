package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/fuchsia74/apiconform/common"
	"github.com/fuchsia74/apiconform/common/config"
	"github.com/fuchsia74/apiconform/common/logger"
	"github.com/fuchsia74/apiconform/model"
	"github.com/fuchsia74/apiconform/report"
	"github.com/fuchsia74/apiconform/router"
	"github.com/fuchsia74/apiconform/runner"
	"github.com/fuchsia74/apiconform/suite"
	"github.com/fuchsia74/apiconform/transport"
)

func main() {
	var (
		serve    = flag.Bool("serve", false, "serve the results API instead of running suites")
		suiteDir = flag.String("suites", config.SuiteDir, "directory of suite documents")
		markdown = flag.String("markdown", "", "write a Markdown report to this path")
		persist  = flag.Bool("persist", false, "persist runs to the configured database")
	)
	flag.Parse()

	logger.Logger.Info("apiconform started", zap.String("version", common.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := serveAPI(); err != nil {
			logger.Logger.Error("serve failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, logger.Logger, *suiteDir, *markdown, *persist); err != nil {
		logger.Logger.Error("conformance run failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Logger.Info("all suites passed")
}

// run loads every suite document, executes them under the bounded pool,
// renders reports, and fails when any case failed.
func run(ctx context.Context, log glog.Logger, suiteDir, markdownPath string, persist bool) error {
	suites, err := suite.LoadDir(suiteDir)
	if err != nil {
		return errors.Wrap(err, "load suites")
	}
	if len(suites) == 0 {
		return errors.Errorf("no loadable suites under %s", suiteDir)
	}

	log.Info("executing suites",
		zap.Int("suite_count", len(suites)),
		zap.Int("concurrency", config.SuiteConcurrency),
	)

	if persist {
		if err := model.InitDB(); err != nil {
			return errors.Wrap(err, "init database")
		}
		defer model.CloseDB()
	}

	runs := runner.RunSuites(ctx, suites, transport.NewHTTP(), config.SuiteConcurrency, log)

	report.RenderConsole(runs)

	if markdownPath != "" {
		fd, err := os.Create(markdownPath)
		if err != nil {
			return errors.Wrapf(err, "create report %s", markdownPath)
		}
		defer fd.Close()
		if err := report.RenderMarkdown(fd, runs); err != nil {
			return errors.Wrap(err, "render markdown report")
		}
		log.Info("markdown report written", zap.String("path", markdownPath))
	}

	failed := 0
	total := 0
	for _, r := range runs {
		if persist && r.Err == nil {
			runID, err := model.SaveRun(r)
			if err != nil {
				log.Warn("persist run failed", zap.String("suite", r.Suite.Name), zap.Error(err))
			} else {
				log.Info("run persisted", zap.String("suite", r.Suite.Name), zap.String("run_id", runID))
			}
		}
		for _, rec := range r.Records {
			total++
			if rec.Status != runner.StatusPass {
				failed++
			}
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d cases failed", failed, total)
	}
	return nil
}

// serveAPI exposes persisted runs and on-demand execution over HTTP.
func serveAPI() error {
	if err := model.InitDB(); err != nil {
		return errors.Wrap(err, "init database")
	}
	defer model.CloseDB()

	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	} else if !config.DebugEnabled {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	router.SetAPIRouter(engine)

	addr := fmt.Sprintf(":%s", config.ServerPort)
	logger.Logger.Info("results API listening", zap.String("addr", addr))
	return engine.Run(addr)
}
