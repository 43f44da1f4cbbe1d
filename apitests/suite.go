package apitests

import (
	"go.uber.org/zap"

	"github.com/verax-qa/verax/config"
	"github.com/verax-qa/verax/framework"
	"github.com/verax-qa/verax/logging"
)

// Suite is a named group of tests. Suites run concurrently when the runner
// is given a concurrency above one; each suite has its own resource scope,
// so clients are never shared across goroutines.
type Suite struct {
	Name   string
	Action func(*T)
}

// AllSuites returns every suite the harness knows, in execution order.
func AllSuites() []Suite {
	return []Suite{
		{Name: "users-api", Action: DoUserAPITests},
		{Name: "data-driven", Action: DoDataDrivenTests},
		{Name: "dataset-validation", Action: DoDatasetValidationTests},
	}
}

// RunSuite executes the given suites and returns the accumulated results.
func RunSuite(cfg *config.Config, suites []Suite, filter framework.Filter, testLogger framework.TestLogger, concurrency int, logs *zap.SugaredLogger) framework.Results {
	groups := make([]framework.Group, 0, len(suites))
	for _, suite := range suites {
		suite := suite
		groups = append(groups, framework.Group{
			Name: suite.Name,
			Action: func(c *framework.Context) {
				scope := framework.NewScope()
				defer func() {
					if err := scope.Close(); err != nil {
						logs.Warnw("error closing suite resources", "suite", suite.Name, "error", err)
					}
				}()
				suite.Action(newT(c, cfg, scope, logging.ForTest(logs, suite.Name)))
			},
		})
	}
	return framework.RunParallel(filter, testLogger, concurrency, groups)
}
