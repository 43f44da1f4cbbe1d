package framework

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	failedLabel  = color.New(color.FgRed).SprintFunc()
	skippedLabel = color.New(color.FgYellow).SprintFunc()
)

// ConsoleTestLogger writes test progress to standard output as tests run.
// Debug output captured during a test can be echoed for failed tests, or for
// all tests.
type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
	lock                 sync.Mutex
}

func (c *ConsoleTestLogger) TestStarted(id TestID) {
	c.lock.Lock()
	defer c.lock.Unlock()
	fmt.Printf("[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id TestID, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Printf("  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id TestID, result TestResult, debugOutput CapturedOutput) {
	c.lock.Lock()
	defer c.lock.Unlock()
	failed := len(result.Errors) > 0
	if failed {
		fmt.Printf("  %s: %s\n", failedLabel("FAILED"), id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(os.Stdout, "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id TestID, reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if reason == "" {
		fmt.Printf("  %s: %s\n", skippedLabel("SKIPPED"), id)
	} else {
		fmt.Printf("  %s: %s (%s)\n", skippedLabel("SKIPPED"), id, reason)
	}
}
