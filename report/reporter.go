// Package report writes test outcomes as Allure-compatible result files, one
// JSON document per test plus attachment files, so existing report viewers
// can render a run without any extra tooling.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verax-qa/verax/framework"
)

const (
	statusPassed  = "passed"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// resultFile is the per-test document of the Allure JSON schema.
type resultFile struct {
	UUID          string            `json:"uuid"`
	Name          string            `json:"name"`
	FullName      string            `json:"fullName"`
	Status        string            `json:"status"`
	StatusDetails *statusDetails    `json:"statusDetails,omitempty"`
	Stage         string            `json:"stage"`
	Start         int64             `json:"start"`
	Stop          int64             `json:"stop"`
	Labels        []label           `json:"labels"`
	Attachments   []attachmentEntry `json:"attachments,omitempty"`
}

type statusDetails struct {
	Message string `json:"message"`
	Trace   string `json:"trace,omitempty"`
}

type label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type attachmentEntry struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// Reporter is a test event listener that writes one result file per finished
// test into an output directory. It is safe for concurrent use.
type Reporter struct {
	dir   string
	logs  *zap.SugaredLogger
	clock func() time.Time

	lock   sync.Mutex
	starts map[string]time.Time
}

// NewReporter creates the output directory and a reporter writing into it.
func NewReporter(dir string, logs *zap.SugaredLogger) (*Reporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}
	return &Reporter{
		dir:    dir,
		logs:   logs,
		clock:  time.Now,
		starts: map[string]time.Time{},
	}, nil
}

// TestStarted records the start time so the result file has a duration.
func (r *Reporter) TestStarted(id framework.TestID) {
	r.lock.Lock()
	r.starts[id.String()] = r.clock()
	r.lock.Unlock()
}

// TestError is a no-op; errors arrive again with the finished result.
func (r *Reporter) TestError(id framework.TestID, err error) {}

// TestSkipped writes a skipped result file for the test.
func (r *Reporter) TestSkipped(id framework.TestID, reason string) {
	doc := r.newResult(id)
	doc.Status = statusSkipped
	if reason != "" {
		doc.StatusDetails = &statusDetails{Message: reason}
	}
	r.writeResult(id, doc)
}

// newResult builds the common fields of a result document, consuming the
// recorded start time.
func (r *Reporter) newResult(id framework.TestID) resultFile {
	stop := r.clock()
	r.lock.Lock()
	start, ok := r.starts[id.String()]
	delete(r.starts, id.String())
	r.lock.Unlock()
	if !ok {
		start = stop
	}
	return resultFile{
		UUID:     uuid.NewString(),
		Name:     testName(id),
		FullName: id.String(),
		Status:   statusPassed,
		Stage:    "finished",
		Start:    start.UnixMilli(),
		Stop:     stop.UnixMilli(),
		Labels:   labelsFor(id),
	}
}

// TestFinished writes the result file and any attachments for one test.
func (r *Reporter) TestFinished(id framework.TestID, result framework.TestResult, debugOutput framework.CapturedOutput) {
	doc := r.newResult(id)

	switch {
	case result.Skipped:
		doc.Status = statusSkipped
		if result.SkipReason != "" {
			doc.StatusDetails = &statusDetails{Message: result.SkipReason}
		}
	case len(result.Errors) > 0:
		doc.Status = statusFailed
		doc.StatusDetails = &statusDetails{
			Message: errorSummary(result.Errors),
			Trace:   debugTrace(debugOutput),
		}
	}

	for _, attachment := range result.Attachments {
		entry, err := r.writeAttachment(attachment)
		if err != nil {
			r.logs.Warnw("could not write attachment", "test", id.String(),
				"attachment", attachment.Name, "error", err)
			continue
		}
		doc.Attachments = append(doc.Attachments, entry)
	}

	r.writeResult(id, doc)
}

func (r *Reporter) writeResult(id framework.TestID, doc resultFile) {
	path := filepath.Join(r.dir, doc.UUID+"-result.json")
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err == nil {
		err = os.WriteFile(path, raw, 0644)
	}
	if err != nil {
		r.logs.Warnw("could not write result file", "test", id.String(), "error", err)
	}
}

func (r *Reporter) writeAttachment(a framework.Attachment) (attachmentEntry, error) {
	source := uuid.NewString() + "-attachment" + extensionFor(a.MediaType)
	if err := os.WriteFile(filepath.Join(r.dir, source), a.Body, 0644); err != nil {
		return attachmentEntry{}, err
	}
	return attachmentEntry{Name: a.Name, Source: source, Type: a.MediaType}, nil
}

// WriteEnvironment writes an environment.properties file describing the run,
// shown by report viewers on the overview page. Keys are written sorted so
// output is deterministic.
func (r *Reporter) WriteEnvironment(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, values[k])
	}
	return os.WriteFile(filepath.Join(r.dir, "environment.properties"), []byte(b.String()), 0644)
}

func testName(id framework.TestID) string {
	if len(id.Path) == 0 {
		return "(root)"
	}
	return id.Path[len(id.Path)-1]
}

func labelsFor(id framework.TestID) []label {
	labels := []label{{Name: "framework", Value: "verax"}}
	if len(id.Path) > 1 {
		labels = append(labels, label{Name: "suite", Value: id.Path[0]})
	}
	return labels
}

func errorSummary(errs []error) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "\n")
}

func debugTrace(output framework.CapturedOutput) string {
	var b strings.Builder
	output.Dump(&b, "")
	return b.String()
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "application/json":
		return ".json"
	case "text/csv":
		return ".csv"
	case "text/html":
		return ".html"
	case "image/png":
		return ".png"
	default:
		return ".txt"
	}
}
