package logger

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-ranker/internal/jobs"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	FieldJobID    = "job_id"
	FieldCompany  = "company"
)

// Fields builds string fields from key/value pairs. Pairs with a blank key or value are
// skipped, as is a trailing key without a value.
func Fields(kv ...string) []zap.Field {
	result := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := strings.TrimSpace(kv[i])
		value := strings.TrimSpace(kv[i+1])
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to l. A nil logger becomes a no-op logger.
func WithFields(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// WithCommonFields tags l with the AI provider and model.
func WithCommonFields(l *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(l, Fields(FieldProvider, provider, FieldModel, model)...)
}

// JobFields identifies a job in log entries.
func JobFields(job jobs.Job) []zap.Field {
	return Fields(FieldJobID, job.ID, FieldCompany, job.Company)
}
