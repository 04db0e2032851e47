package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func result(name string, success bool) JobResult {
	return JobResult{
		JobName:   name,
		StartTime: time.Now(),
		EndTime:   time.Now(),
		Success:   success,
	}
}

func TestJobHistory_KeepsLastHundred(t *testing.T) {
	h := &JobHistory{}

	for i := 0; i < 150; i++ {
		h.AddResult(result("job", true))
	}

	assert.Len(t, h.Results, 100)
}

func TestJobHistory_GetLatestResults(t *testing.T) {
	h := &JobHistory{}
	h.AddResult(result("a", true))
	h.AddResult(result("b", false))
	h.AddResult(result("c", true))

	latest := h.GetLatestResults(2)
	assert.Len(t, latest, 2)
	assert.Equal(t, "b", latest[0].JobName)
	assert.Equal(t, "c", latest[1].JobName)

	assert.Len(t, h.GetLatestResults(10), 3)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(5))
}

func TestJobHistory_SuccessRate(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())

	h.AddResult(result("a", true))
	h.AddResult(result("b", true))
	h.AddResult(result("c", false))
	h.AddResult(result("d", true))

	assert.InDelta(t, 0.75, h.GetSuccessRate(), 1e-9)
}
