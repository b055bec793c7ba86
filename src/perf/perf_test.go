package perf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPerf(t *testing.T) {
	rp := MakeNewRequestPerf("GET /images", "GET", "/images")
	b := rp.StartBlock("SQL", "Fetch images")
	b.End()
	open := rp.StartBlock("TEMPLATE", "images.html")
	_ = open
	rp.EndRequest()

	require.Len(t, rp.Blocks, 2)
	for _, block := range rp.Blocks {
		assert.False(t, block.End.IsZero())
		assert.GreaterOrEqual(t, block.Duration(), time.Duration(0))
	}
	assert.Equal(t, "SQL", rp.Blocks[0].Category)
}

func TestNilPerf(t *testing.T) {
	var rp *RequestPerf
	assert.NotPanics(t, func() {
		rp.StartBlock("SQL", "nothing").End()
		rp.Checkpoint("X", "y")
		rp.EndRequest()
	})
	assert.Nil(t, ExtractPerf(context.Background()))
}

func TestExtractPerf(t *testing.T) {
	rp := MakeNewRequestPerf("r", "GET", "/")
	ctx := AttachPerf(context.Background(), rp)
	assert.Same(t, rp, ExtractPerf(ctx))
}

func TestPerfCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	collector := RunPerfCollector(ctx, 2)

	for _, path := range []string{"/a", "/b", "/c"} {
		rp := MakeNewRequestPerf("r", "GET", path)
		rp.EndRequest()
		collector.SubmitRun(rp)
	}

	assert.Eventually(t, func() bool {
		records := collector.GetPerfCopy()
		return len(records) == 2 && records[0].Path == "/b" && records[1].Path == "/c"
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-collector.Done()
	assert.Nil(t, collector.GetPerfCopy())
}
