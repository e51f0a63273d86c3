package usage

import (
	"time"

	"github.com/google/uuid"
)

type MetricType string

const (
	MetricUploadedBytes   MetricType = "UPLOADED_BYTES"
	MetricDownloadedBytes MetricType = "DOWNLOADED_BYTES"
)

const (
	// LifetimePeriod is the period of upload metrics: stored data does not
	// reset monthly.
	LifetimePeriod = "LIFETIME"

	// ChunkSize is the Swarm chunk payload size.
	ChunkSize int64 = 4096
)

// Metric is the usage of one quota in one period.
type Metric struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Period         string     `json:"period"`
	Type           MetricType `json:"type"`
	Available      int64      `json:"available"`
	Used           int64      `json:"used"`
}

func (m *Metric) Remaining() int64 {
	return max(m.Available-m.Used, 0)
}

// Fits reports whether size more bytes stay within the quota.
func (m *Metric) Fits(size int64) bool {
	return m.Used+size <= m.Available
}

// PeriodOf returns the period a metric type is counted in at t.
func PeriodOf(t MetricType, at time.Time) string {
	if t == MetricUploadedBytes {
		return LifetimePeriod
	}
	return at.UTC().Format("2006-01")
}

// ChunkAlign rounds size up to whole chunks.
func ChunkAlign(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + ChunkSize - 1) / ChunkSize * ChunkSize
}
