package perf

import (
	"context"
	"sync"
	"time"
)

type RequestPerf struct {
	Route  string
	Path   string // the path actually matched
	Method string
	Start  time.Time
	End    time.Time
	Blocks []PerfBlock

	mu sync.Mutex
}

func MakeNewRequestPerf(route string, method string, path string) *RequestPerf {
	return &RequestPerf{
		Start:  time.Now(),
		Route:  route,
		Path:   path,
		Method: method,
	}
}

func (rp *RequestPerf) EndRequest() {
	if rp == nil {
		return
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	now := time.Now()
	for i := range rp.Blocks {
		if rp.Blocks[i].End.IsZero() {
			rp.Blocks[i].End = now
		}
	}
	rp.End = now
}

func (rp *RequestPerf) Checkpoint(category, description string) {
	if rp == nil {
		return
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	now := time.Now()
	rp.Blocks = append(rp.Blocks, PerfBlock{
		Start:       now,
		End:         now,
		Category:    category,
		Description: description,
	})
}

/*
Starts timing a block of work. Call End on the result when the work is done.
StartBlock on a nil RequestPerf returns a Block that does nothing, so code
running outside a request (jobs, CLI commands) can use perf freely.
*/
func (rp *RequestPerf) StartBlock(category, description string) Block {
	if rp == nil {
		return Block{}
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.Blocks = append(rp.Blocks, PerfBlock{
		Start:       time.Now(),
		Category:    category,
		Description: description,
	})
	return Block{rp: rp, idx: len(rp.Blocks) - 1}
}

func (rp *RequestPerf) MsFromStart(block *PerfBlock) float64 {
	return float64(block.Start.Sub(rp.Start).Nanoseconds()) / 1000 / 1000
}

func (rp *RequestPerf) Duration() time.Duration {
	return rp.End.Sub(rp.Start)
}

type Block struct {
	rp  *RequestPerf
	idx int
}

func (b Block) End() {
	if b.rp == nil {
		return
	}

	b.rp.mu.Lock()
	defer b.rp.mu.Unlock()
	if b.rp.Blocks[b.idx].End.IsZero() {
		b.rp.Blocks[b.idx].End = time.Now()
	}
}

type PerfBlock struct {
	Start       time.Time
	End         time.Time
	Category    string
	Description string
}

func (pb *PerfBlock) Duration() time.Duration {
	return pb.End.Sub(pb.Start)
}

func (pb *PerfBlock) DurationMs() float64 {
	return float64(pb.Duration().Nanoseconds()) / 1000 / 1000
}

type contextKey struct{}

var PerfContextKey = contextKey{}

func AttachPerf(ctx context.Context, rp *RequestPerf) context.Context {
	return context.WithValue(ctx, PerfContextKey, rp)
}

// Returns nil if the context carries no RequestPerf. All methods are safe to
// call on nil.
func ExtractPerf(ctx context.Context) *RequestPerf {
	rp, _ := ctx.Value(PerfContextKey).(*RequestPerf)
	return rp
}

// A summary of a finished request, detached from the live RequestPerf.
type Record struct {
	Route    string
	Path     string
	Method   string
	Start    time.Time
	Duration time.Duration
	Blocks   []PerfBlock
}

func (rp *RequestPerf) Record() Record {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	return Record{
		Route:    rp.Route,
		Path:     rp.Path,
		Method:   rp.Method,
		Start:    rp.Start,
		Duration: rp.End.Sub(rp.Start),
		Blocks:   append([]PerfBlock(nil), rp.Blocks...),
	}
}

/*
PerfCollector keeps the most recent request records in memory so admins can
look at them. Older records are dropped once the limit is reached.
*/
type PerfCollector struct {
	in          chan Record
	requestCopy chan chan []Record
	done        chan struct{}
}

func RunPerfCollector(ctx context.Context, limit int) *PerfCollector {
	perfCollector := &PerfCollector{
		in:          make(chan Record, 64),
		requestCopy: make(chan chan []Record),
		done:        make(chan struct{}),
	}

	go func() {
		defer close(perfCollector.done)

		var records []Record
		for {
			select {
			case record := <-perfCollector.in:
				records = append(records, record)
				if len(records) > limit {
					records = records[len(records)-limit:]
				}
			case resultChan := <-perfCollector.requestCopy:
				resultChan <- append([]Record(nil), records...)
			case <-ctx.Done():
				return
			}
		}
	}()

	return perfCollector
}

// Never blocks the request; records are dropped if the collector is busy or
// has shut down.
func (perfCollector *PerfCollector) SubmitRun(run *RequestPerf) {
	if perfCollector == nil || run == nil {
		return
	}
	select {
	case perfCollector.in <- run.Record():
	default:
	}
}

// Returns nil once the collector has shut down.
func (perfCollector *PerfCollector) GetPerfCopy() []Record {
	if perfCollector == nil {
		return nil
	}
	resultChan := make(chan []Record, 1)
	select {
	case perfCollector.requestCopy <- resultChan:
		return <-resultChan
	case <-perfCollector.done:
		return nil
	}
}

func (perfCollector *PerfCollector) Done() <-chan struct{} {
	return perfCollector.done
}
