// Package logcapture buffers structured log records for later filtering and assertion.
//
// A Capture is a logrus hook. The first Start attaches it to the logger, Start and
// Stop then switch recording on and off, and the buffered records can be queried
// lazily with Logs or asserted on with AssertContains and AssertNoErrors.
//
// The hook is never detached: logrus only offers ReplaceHooks, and swapping the
// hook table would race with other hooks being added to the same logger.
package logcapture

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/sirupsen/logrus"
)

// Record is one captured log entry.
type Record struct {
	Timestamp time.Time
	Level     logrus.Level
	Message   string
	Source    string
	Fields    logrus.Fields
}

// Capture is an append-only buffer fed by a logrus hook.
type Capture struct {
	logger *logrus.Logger
	attach sync.Once

	mu        sync.RWMutex
	records   []Record
	scope     string
	installed bool
}

// New creates a capture for logger. Nothing is recorded until Start.
func New(logger *logrus.Logger) *Capture {
	return &Capture{logger: logger}
}

// Start begins recording. An empty scope captures every record; otherwise only
// records whose source equals scope or lies beneath it ("scope/...") are kept.
// Calling Start while already capturing only changes the scope.
func (c *Capture) Start(scope string) {
	c.attach.Do(func() {
		c.logger.AddHook(c)
	})

	c.mu.Lock()
	c.scope = scope
	c.installed = true
	c.mu.Unlock()
}

// Stop ends recording. It is safe to call repeatedly or without Start.
func (c *Capture) Stop() {
	c.mu.Lock()
	c.installed = false
	c.mu.Unlock()
}

// Levels implements logrus.Hook.
func (c *Capture) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (c *Capture) Fire(entry *logrus.Entry) error {
	source, _ := entry.Data[logging.SourceField].(string)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.installed || !inScope(c.scope, source) {
		return nil
	}

	c.records = append(c.records, Record{
		Timestamp: entry.Time,
		Level:     entry.Level,
		Message:   entry.Message,
		Source:    source,
		Fields:    maps.Clone(entry.Data),
	})

	return nil
}

// Filter narrows a Logs query.
type Filter func(Record) bool

// AtLevel keeps records logged at exactly level.
func AtLevel(level logrus.Level) Filter {
	return func(record Record) bool {
		return record.Level == level
	}
}

// AtOrAbove keeps records at level or more severe.
func AtOrAbove(level logrus.Level) Filter {
	return func(record Record) bool {
		return record.Level <= level
	}
}

// Containing keeps records whose message contains substr.
func Containing(substr string) Filter {
	return func(record Record) bool {
		return strings.Contains(record.Message, substr)
	}
}

// FromSource keeps records emitted by source.
func FromSource(source string) Filter {
	return func(record Record) bool {
		return record.Source == source
	}
}

// Logs yields the buffered records matching every filter, oldest first.
// The buffer is snapshotted when iteration starts and filters run lazily.
func (c *Capture) Logs(filters ...Filter) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		c.mu.RLock()
		snapshot := slices.Clone(c.records)
		c.mu.RUnlock()

		for _, record := range snapshot {
			if matches(record, filters) && !yield(record) {
				return
			}
		}
	}
}

// Collect returns the matching records as a slice.
func (c *Capture) Collect(filters ...Filter) []Record {
	return slices.Collect(c.Logs(filters...))
}

// Len returns the number of buffered records.
func (c *Capture) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.records)
}

// Reset drops every buffered record.
func (c *Capture) Reset() {
	c.mu.Lock()
	c.records = nil
	c.mu.Unlock()
}

// AssertContains fails unless a buffered record contains message,
// optionally restricted to one of levels.
func (c *Capture) AssertContains(message string, levels ...logrus.Level) error {
	filters := []Filter{Containing(message)}
	if len(levels) > 0 {
		filters = append(filters, func(record Record) bool {
			return slices.Contains(levels, record.Level)
		})
	}

	for range c.Logs(filters...) {
		return nil
	}

	return fmt.Errorf("%w containing %q", ErrNoMatchingLog, message)
}

// AssertNoErrors fails if any buffered record is at error level or worse.
func (c *Capture) AssertNoErrors() error {
	errorLogs := c.Collect(AtOrAbove(logrus.ErrorLevel))
	if len(errorLogs) == 0 {
		return nil
	}

	messages := make([]string, 0, len(errorLogs))
	for _, record := range errorLogs {
		messages = append(messages, record.Message)
	}

	return fmt.Errorf("%w: found %d: %s", ErrErrorLogs, len(errorLogs), strings.Join(messages, "; "))
}

// --- internals ---

func inScope(scope, source string) bool {
	return scope == "" || source == scope || strings.HasPrefix(source, scope+"/")
}

func matches(record Record, filters []Filter) bool {
	for _, filter := range filters {
		if filter != nil && !filter(record) {
			return false
		}
	}

	return true
}
