package usecase

import (
	"fmt"
	"strings"
)

// recordingLogger collects log lines for assertions across the
// pipeline tests.
type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Infof(template string, args ...interface{}) {
	l.lines = append(l.lines, "[INFO] "+fmt.Sprintf(template, args...))
}

func (l *recordingLogger) Errorf(template string, args ...interface{}) {
	l.lines = append(l.lines, "[ERROR] "+fmt.Sprintf(template, args...))
}

func (l *recordingLogger) errorCount() int {
	n := 0
	for _, line := range l.lines {
		if strings.HasPrefix(line, "[ERROR]") {
			n++
		}
	}
	return n
}

func (l *recordingLogger) contains(substr string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
