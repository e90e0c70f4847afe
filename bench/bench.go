package bench

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

type Size struct {
	Name  string
	Bytes int
}

func NewSize(n int) Size {
	return Size{Name: humanize.IBytes(uint64(n)), Bytes: n}
}

var Sizes = []Size{
	NewSize(1024),
	NewSize(100 * 1024),
	NewSize(1024 * 1024),
}

type OperationResult struct {
	P50       time.Duration
	P99       time.Duration
	OpsPerSec float64
}

type SizeResult struct {
	Size          Size
	Put           OperationResult
	Get           OperationResult
	Exists        OperationResult
	ConcurrentPut OperationResult
}

type BackendResult struct {
	Backend string
	Results []SizeResult
	Error   string `json:",omitempty"`
}

type RunResult struct {
	Timestamp time.Time
	Backends  []BackendResult
}

// DefaultIterations is the number of timed calls per operation and size.
const DefaultIterations = 100

func randomData(size int) []byte {
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return data
}

// percentileStats sorts latencies and computes P50, P99, and ops/sec.
func percentileStats(n int, latencies []time.Duration) OperationResult {
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p50 := latencies[len(latencies)*50/100]
	p99 := latencies[len(latencies)*99/100]
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	if total <= 0 {
		return OperationResult{P50: p50, P99: p99}
	}
	return OperationResult{P50: p50, P99: p99, OpsPerSec: float64(n) / total.Seconds()}
}

func measure(n int, fn func() error) (OperationResult, error) {
	latencies := make([]time.Duration, 0, n)
	for range n {
		start := time.Now()
		if err := fn(); err != nil {
			return OperationResult{}, err
		}
		latencies = append(latencies, time.Since(start))
	}
	return percentileStats(n, latencies), nil
}

func measureConcurrent(n int, fn func() error) (OperationResult, error) {
	workers := runtime.NumCPU()
	latencies := make([]time.Duration, n)
	errCh := make(chan error, n)
	jobs := make(chan int, n)

	for i := range n {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range jobs {
				start := time.Now()
				if err := fn(); err != nil {
					errCh <- err
					return
				}
				latencies[i] = time.Since(start)
			}
		})
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return OperationResult{}, err
	}

	return percentileStats(n, latencies), nil
}

func Run(name string, s store.ObjectStore, sizes []Size, iterations int) BackendResult {
	result := BackendResult{Backend: name}
	if iterations < 1 {
		result.Error = fmt.Sprintf("iterations must be positive, got %d", iterations)
		return result
	}

	for _, size := range sizes {
		sr := SizeResult{Size: size}
		data := randomData(size.Bytes)

		// pre-populate ids for Get/Exists
		ids := make([]string, iterations)
		for i := range iterations {
			obj := &object.Object{Kind: object.KindBlob, Data: randomData(size.Bytes)}
			id, err := s.Put(obj)
			if err != nil {
				result.Error = fmt.Sprintf("setup Put failed: %v", err)
				return result
			}
			ids[i] = id
		}

		// Put, after the first call every write is a dedup hit
		putResult, err := measure(iterations, func() error {
			obj := &object.Object{Kind: object.KindBlob, Data: data}
			_, err := s.Put(obj)
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Put benchmark failed: %v", err)
			return result
		}
		sr.Put = putResult

		// Get, cycling through pre-populated ids
		i := 0
		getResult, err := measure(iterations, func() error {
			_, err := s.Get(ids[i%len(ids)])
			i++
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Get benchmark failed: %v", err)
			return result
		}
		sr.Get = getResult

		j := 0
		existsResult, err := measure(iterations, func() error {
			ok, err := s.Exists(ids[j%len(ids)])
			j++
			if err == nil && !ok {
				return store.ErrObjectNotFound
			}
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Exists benchmark failed: %v", err)
			return result
		}
		sr.Exists = existsResult

		concResult, err := measureConcurrent(iterations, func() error {
			obj := &object.Object{Kind: object.KindBlob, Data: randomData(size.Bytes)}
			_, err := s.Put(obj)
			return err
		})
		if err != nil {
			result.Error = fmt.Sprintf("Concurrent Put benchmark failed: %v", err)
			return result
		}
		sr.ConcurrentPut = concResult

		result.Results = append(result.Results, sr)
	}

	return result
}
