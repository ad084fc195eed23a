package shared

import (
	"fmt"
	"io"
	"os"
)

// Reporter emits formatted synchronization events to an underlying sink.
type Reporter interface {
	Printf(format string, args ...any)
}

type writerReporter struct {
	writer io.Writer
}

// NewWriterReporter constructs a Reporter that writes to the provided io.Writer, defaulting to standard output.
func NewWriterReporter(writer io.Writer) Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return writerReporter{writer: writer}
}

func (reporter writerReporter) Printf(format string, args ...any) {
	fmt.Fprintf(reporter.writer, format, args...)
}

type discardReporter struct{}

// NewDiscardReporter constructs a Reporter that drops every event.
func NewDiscardReporter() Reporter {
	return discardReporter{}
}

func (discardReporter) Printf(string, ...any) {}
