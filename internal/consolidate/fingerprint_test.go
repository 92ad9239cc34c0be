package consolidate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tinkerloft/triage/internal/consolidate"
	"github.com/tinkerloft/triage/internal/model"
)

func entry(action, result string) model.ActivityLogEntry {
	return model.ActivityLogEntry{
		DomainID:   "infrastructure",
		TaskID:     "task-1",
		ActionText: action,
		ResultText: result,
		CreatedAt:  time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := entry("scaled the cluster", "ok")
	b := entry("rotated certs", "done")

	fp1 := consolidate.Fingerprint([]model.ActivityLogEntry{a, b})
	fp2 := consolidate.Fingerprint([]model.ActivityLogEntry{b, a})
	assert.Equal(t, fp1, fp2)
}

func TestFingerprint_RepetitionInvariant(t *testing.T) {
	a := entry("scaled the cluster", "ok")

	once := consolidate.Fingerprint([]model.ActivityLogEntry{a})
	thrice := consolidate.Fingerprint([]model.ActivityLogEntry{a, a, a})
	assert.Equal(t, once, thrice)
}

func TestFingerprint_NormalizesWhitespaceAndCase(t *testing.T) {
	fp1 := consolidate.Fingerprint([]model.ActivityLogEntry{entry("Scaled the   Cluster", "OK")})
	fp2 := consolidate.Fingerprint([]model.ActivityLogEntry{entry("scaled the cluster", "ok")})
	assert.Equal(t, fp1, fp2)
}

func TestFingerprint_DistinguishesContent(t *testing.T) {
	fp1 := consolidate.Fingerprint([]model.ActivityLogEntry{entry("scaled the cluster", "ok")})
	fp2 := consolidate.Fingerprint([]model.ActivityLogEntry{entry("drained the cluster", "ok")})
	assert.NotEqual(t, fp1, fp2)
}
