package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	"github.com/stretchr/testify/assert"
)

type countingChecker struct {
	runs atomic.Int32
}

func (c *countingChecker) CheckPanel(context.Context, string) (domainHealth.HealthRecord, error) {
	return domainHealth.HealthRecord{}, nil
}

func (c *countingChecker) CheckDevice(context.Context, string) (domainHealth.HealthRecord, error) {
	return domainHealth.HealthRecord{}, nil
}

func (c *countingChecker) CheckAll(context.Context) ([]domainHealth.HealthRecord, error) {
	c.runs.Add(1)
	return []domainHealth.HealthRecord{{Status: domainHealth.StatusOk}, {Status: domainHealth.StatusError}}, nil
}

func (c *countingChecker) GetStatus(context.Context) ([]domainHealth.HealthRecord, error) {
	return nil, nil
}

func (c *countingChecker) ReportFailure(context.Context, domainHealth.EntityType, string, string) {}

func (c *countingChecker) ReportSuccess(context.Context, domainHealth.EntityType, string) {}

func TestHealthChecksRunOnScheduler(t *testing.T) {
	s := New()
	checker := &countingChecker{}
	s.AddHealthChecks(time.Second, checker)
	assert.Len(t, s.cron.Entries(), 1)

	s.Start()
	assert.Eventually(t, func() bool { return checker.runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()

	// nothing fires after Stop
	runs := checker.runs.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, runs, checker.runs.Load())
}

func TestHealthChecksDisabled(t *testing.T) {
	s := New()
	s.AddHealthChecks(0, &countingChecker{})
	assert.Empty(t, s.cron.Entries())
}
