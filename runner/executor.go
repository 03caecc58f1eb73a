package runner

import (
	"context"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fuchsia74/apiconform/provider"
	"github.com/fuchsia74/apiconform/suite"
	"github.com/fuchsia74/apiconform/transport"
)

// SuiteRun is the outcome of executing one suite: its ordered records, or
// the configuration error that prevented it from running at all.
type SuiteRun struct {
	Suite   *suite.Suite
	Records []Record
	Err     error
}

// Passed reports whether the run executed and every case passed.
func (sr *SuiteRun) Passed() bool {
	if sr.Err != nil {
		return false
	}
	for _, rec := range sr.Records {
		if rec.Status != StatusPass {
			return false
		}
	}
	return true
}

// RunSuite executes every case of one suite sequentially, appending into the
// given collector. Provider resolution failures abort the whole suite: a
// misconfigured provider is a configuration error, not a case failure.
func RunSuite(ctx context.Context, s *suite.Suite, tp transport.Transport, collector *Collector, logger glog.Logger) error {
	prov, err := provider.FromEnv(s.Provider)
	if err != nil {
		return errors.Wrapf(err, "suite %s", s.Name)
	}

	r := New(s, prov, tp, collector, logger)
	for _, c := range s.Cases {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "suite %s interrupted", s.Name)
		default:
		}
		r.RunCase(ctx, c)
	}
	return nil
}

// RunSuites executes suites under a bounded worker pool. Each suite gets its
// own collector, so no cross-suite state exists; results come back in suite
// order regardless of scheduling.
func RunSuites(ctx context.Context, suites []*suite.Suite, tp transport.Transport, concurrency int, logger glog.Logger) []SuiteRun {
	if concurrency < 1 {
		concurrency = 1
	}

	runs := make([]SuiteRun, len(suites))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)

	for i, s := range suites {
		grp.Go(func() error {
			logger.Info("running suite",
				zap.String("suite", s.Name),
				zap.String("provider", s.Provider),
				zap.Int("cases", len(s.Cases)),
			)
			collector := NewCollector()
			err := RunSuite(grpCtx, s, tp, collector, logger)
			if err != nil {
				logger.Warn("suite skipped", zap.String("suite", s.Name), zap.Error(err))
			}
			runs[i] = SuiteRun{Suite: s, Records: collector.Records(), Err: err}
			return nil
		})
	}

	_ = grp.Wait()
	return runs
}
