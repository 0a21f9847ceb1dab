package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type (
	LogLevel  int
	LogStatus int
)

const (
	VERBOSE LogStatus = iota
	DEBUG
	INFO
	SUCCESS
	PROGRESS
	WARNING
	ERROR
	FATAL
)

func (e LogStatus) String() string {
	return []string{
		"V",
		"D",
		"I",
		"✓",
		"~",
		"!",
		"!!",
		"PANIC",
	}[e]
}

func (e LogStatus) Color() *color.Color {
	return []*color.Color{
		color.New(color.FgWhite, color.Italic),                // Verbose
		color.New(color.FgWhite, color.Italic),                // Debug
		color.New(color.FgWhite),                              // Info
		color.New(color.FgHiGreen),                            // Success
		color.New(color.FgCyan),                               // Progress
		color.New(color.FgYellow, color.Underline),            // Warning
		color.New(color.FgHiRed, color.Bold),                  // Error
		color.New(color.FgHiRed, color.Bold, color.Underline), // Fatal
	}[e]
}

// Level converts a status to the threshold it is emitted at, for use
// with SetMinLoggingLevel.
func (e LogStatus) Level() LogLevel { return LogLevel(e) }

// Logger is a named handle on the process-wide log output. Each
// component should obtain its own via Get so emitted messages carry
// the component name.
type Logger interface {
	Emit(LogStatus, string, ...interface{})
}

type loggerImpl struct {
	name string
}

func (l *loggerImpl) Emit(status LogStatus, message string, interpolations ...interface{}) {
	mgr.emit(status, l.name, message, interpolations...)
}

type loggerMgr struct {
	mu       sync.Mutex
	offset   int
	minLevel LogLevel
}

var mgr = &loggerMgr{minLevel: INFO.Level()}

// SetMinLoggingLevel adjusts the threshold below which emitted
// messages are discarded. It applies process-wide.
func SetMinLoggingLevel(level LogLevel) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.minLevel = level
}

// Get returns a named Logger. Loggers share the process-wide output
// and level threshold; the name only prefixes emitted messages.
func Get(name string) Logger {
	return &loggerImpl{name: name}
}

func (l *loggerMgr) emit(status LogStatus, name string, message string, interpolations ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if status.Level() < l.minLevel {
		return
	}

	if len(name) > l.offset {
		l.offset = len(name)
	}

	padding := strings.Repeat(" ", l.offset-len(name))
	msg := fmt.Sprintf("[%s] %s(%s) %s", name, padding, status, fmt.Sprintf(message, interpolations...))
	status.Color().Fprint(os.Stderr, msg)

	if status == FATAL {
		os.Exit(1)
	}
}
