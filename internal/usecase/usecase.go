// Package usecase holds the job pipelines and the runner that strings
// them together. Sub-task failures are converted to unit outcomes at
// the pipeline boundary and never unwind past it.
package usecase

import (
	"github.com/semmidev/argus/internal/domain"
)

// Logger is the per-run diagnostic log. Everything written here ends up
// in the failure notification body, in emission order.
type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// UploadTarget pairs a destination name with its storage client.
type UploadTarget struct {
	Name    string
	Storage domain.Storage
}
