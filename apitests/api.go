// Package apitests contains the test suites the harness runs against a
// deployed system: user API checks, data-driven checks, and bulk dataset
// validation. The T type gives each test lazy access to shared clients whose
// lifetime is bound to the suite's resource scope.
package apitests

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/verax-qa/verax/config"
	"github.com/verax-qa/verax/data"
	"github.com/verax-qa/verax/docdb"
	"github.com/verax-qa/verax/framework"
	"github.com/verax-qa/verax/logging"
	"github.com/verax-qa/verax/restclient"
	"github.com/verax-qa/verax/sqldb"
)

const (
	scopeKeyClient   = "restclient"
	scopeKeySQL      = "sqldb"
	scopeKeyDocDB    = "docdb"
	scopeKeyDebugLog = "debuglog"
)

// scopedDebugLogger forwards debug output from a shared client to whichever
// test is currently using it, so the output lands in that test's captured
// log rather than in the log of the test that first created the client.
type scopedDebugLogger struct {
	lock    sync.Mutex
	current framework.Logger
}

func (l *scopedDebugLogger) set(target framework.Logger) {
	l.lock.Lock()
	l.current = target
	l.lock.Unlock()
}

func (l *scopedDebugLogger) Printf(message string, args ...interface{}) {
	l.lock.Lock()
	target := l.current
	l.lock.Unlock()
	if target != nil {
		target.Printf(message, args...)
	}
}

// T is the context passed to every test in a suite. It extends the base test
// context with configuration and clients. Clients are created on first use
// and shared by all tests in the same suite group; the scope tears them down
// when the group ends.
type T struct {
	*framework.Context
	cfg   *config.Config
	scope *framework.Scope
	logs  *zap.SugaredLogger
	ctx   context.Context
}

func newT(c *framework.Context, cfg *config.Config, scope *framework.Scope, logs *zap.SugaredLogger) *T {
	return &T{
		Context: c,
		cfg:     cfg,
		scope:   scope,
		logs:    logs,
		ctx:     context.Background(),
	}
}

// Run executes a named subtest. The subtest shares the suite's resource
// scope.
func (t *T) Run(name string, action func(*T)) {
	t.Context.Run(name, func(c *framework.Context) {
		action(newT(c, t.cfg, t.scope, logging.ForTest(t.logs, c.ID().String())))
	})
}

// Config returns the harness configuration.
func (t *T) Config() *config.Config { return t.cfg }

// debugLog returns the scope's shared debug logger, pointed at this test.
func (t *T) debugLog() framework.Logger {
	value, err := t.scope.GetOrCreate(scopeKeyDebugLog, func() (interface{}, func() error, error) {
		return &scopedDebugLogger{}, nil, nil
	})
	if err != nil {
		return t.DebugLogger()
	}
	logger := value.(*scopedDebugLogger)
	logger.set(t.DebugLogger())
	return logger
}

// Ctx returns the context for blocking operations in this test.
func (t *T) Ctx() context.Context { return t.ctx }

// Client returns the shared HTTP client for the system under test.
func (t *T) Client() *restclient.Client {
	value, err := t.scope.GetOrCreate(scopeKeyClient, func() (interface{}, func() error, error) {
		c := restclient.FromConfig(t.cfg.API, t.logs, t.debugLog())
		return c, nil, nil
	})
	if err != nil {
		t.Errorf("could not create HTTP client: %s", err)
		t.FailNow()
	}
	return value.(*restclient.Client)
}

// SQL returns the shared relational database client, connecting on first
// use. The test fails if the connection cannot be established.
func (t *T) SQL() *sqldb.Client {
	value, err := t.scope.GetOrCreate(scopeKeySQL, func() (interface{}, func() error, error) {
		client, err := sqldb.FromConfig(t.ctx, t.cfg.SQL, t.logs, t.debugLog())
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	})
	if err != nil {
		t.Errorf("could not connect to relational database: %s", err)
		t.FailNow()
	}
	return value.(*sqldb.Client)
}

// RequireSQL returns the relational database client, skipping the test when
// no database is configured for this environment.
func (t *T) RequireSQL() *sqldb.Client {
	if !t.cfg.SQL.Configured() {
		t.SkipWithReason("relational database is not configured")
	}
	return t.SQL()
}

// DocDB returns the shared document database client, connecting on first
// use. The test fails if the connection cannot be established.
func (t *T) DocDB() *docdb.Client {
	value, err := t.scope.GetOrCreate(scopeKeyDocDB, func() (interface{}, func() error, error) {
		client, err := docdb.FromConfig(t.ctx, t.cfg.DocDB, t.logs, t.debugLog())
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	})
	if err != nil {
		t.Errorf("could not connect to document database: %s", err)
		t.FailNow()
	}
	return value.(*docdb.Client)
}

// RequireDocDB returns the document database client, skipping the test when
// no document database is configured for this environment.
func (t *T) RequireDocDB() *docdb.Client {
	if !t.cfg.DocDB.Configured() {
		t.SkipWithReason("document database is not configured")
	}
	return t.DocDB()
}

// ForEachRow runs a subtest per input row, named after nameColumn when the
// row has it.
func (t *T) ForEachRow(rows []data.Row, nameColumn string, action func(*T, data.Row)) {
	for i, row := range rows {
		name := row.String(nameColumn)
		if name == "" {
			name = fmt.Sprintf("row %d", i+1)
		}
		row := row
		t.Run(name, func(t *T) {
			action(t, row)
		})
	}
}

// AttachJSON records a JSON payload on the test for report output.
func (t *T) AttachJSON(name string, body []byte) {
	t.Attach(name, "application/json", body)
}

// AttachText records a plain text payload on the test for report output.
func (t *T) AttachText(name, body string) {
	t.Attach(name, "text/plain", []byte(body))
}
