package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/verax-qa/verax/framework"
)

// overrideFlags collects repeated -var key=value flags.
type overrideFlags map[string]string

func (o overrideFlags) String() string {
	var ss []string
	for k, v := range o {
		ss = append(ss, k+"="+v)
	}
	return strings.Join(ss, " ")
}

func (o overrideFlags) Set(value string) error {
	key, v, found := strings.Cut(value, "=")
	if !found || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	o[key] = v
	return nil
}

type commandParams struct {
	baseURL     string
	environment string
	configDir   string
	reportDir   string
	filters     framework.RegexFilters
	overrides   overrideFlags
	parallelism int
	debug       bool
	debugAll    bool
}

func (c *commandParams) Read(args []string) bool {
	c.overrides = overrideFlags{}
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.baseURL, "url", "", "base URL of the system under test (overrides configuration)")
	fs.StringVar(&c.environment, "env", "", "environment name used to pick the configuration overlay")
	fs.StringVar(&c.configDir, "config", "configs", "directory holding the configuration files")
	fs.StringVar(&c.reportDir, "report-dir", "", "directory for report output (overrides configuration)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.Var(c.overrides, "var", "configuration override as dotted.path=value (may be repeated)")
	fs.IntVar(&c.parallelism, "parallel", 1, "number of suites to run concurrently")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	return true
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// rerunCommand builds a command line that re-runs exactly the tests that
// failed, printed after a failed run.
func rerunCommand(params commandParams, failed []framework.TestID) string {
	var b commandBuilder
	b.add(os.Args[0])
	if params.baseURL != "" {
		b.add("-url", params.baseURL)
	}
	if params.environment != "" {
		b.add("-env", params.environment)
	}
	if params.configDir != "configs" {
		b.add("-config", params.configDir)
	}
	for key, value := range params.overrides {
		b.add("-var", key+"="+value)
	}
	for _, id := range failed {
		var pattern []string
		for _, part := range id.Path {
			pattern = append(pattern, "^"+regexp.QuoteMeta(part)+"$")
		}
		b.add("-run", strings.Join(pattern, "/"))
	}
	b.add("-debug")
	return b.String()
}
