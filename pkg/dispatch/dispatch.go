// Package dispatch runs a function over a stream of discovered files using a
// bounded worker pool, optionally reading each file's content first and
// writing each result through a sink dataset's handler.
package dispatch

import (
	"context"
	"runtime"

	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// WorkerType selects how a dispatch worker is scheduled. Go has no true
// OS-process worker pool, so ProcessWorker is modeled as a goroutine pinned
// to its own OS thread via runtime.LockOSThread rather than a real
// subprocess — a deliberate, documented deviation.
type WorkerType int

const (
	ThreadWorker WorkerType = iota
	ProcessWorker
)

// Func is the user computation applied to each file. content is nil unless
// Options.OnContent is set.
type Func func(ctx context.Context, fi fileinfo.FileInfo, content []byte) (any, error)

// Sink writes a task's return value into a destination dataset.
type Sink struct {
	Render func(fi fileinfo.FileInfo) (string, error)
	Write  func(path string, value any) error
}

// Options configures a Map/IMap run.
type Options struct {
	MaxWorkers int
	WorkerType WorkerType
	OnContent  bool
	Reader     func(fileinfo.FileInfo) ([]byte, error)
	Sink       *Sink
	// Init runs once per worker goroutine before it processes any task. A
	// non-nil error aborts the whole dispatch.
	Init func() error
}

// Result is one task's outcome.
type Result struct {
	Info    fileinfo.FileInfo
	Value   any
	Written bool
	Err     error
}

type job struct {
	index int
	info  fileinfo.FileInfo
}

// ResultStream is a pull iterator over Results in input order, with at most
// MaxWorkers+1 tasks in flight at a time (MaxWorkers running, one more
// queued for the next free worker).
type ResultStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
	chans  []chan Result
	next   int
}

// IMap starts a streaming dispatch over files and returns a ResultStream.
func IMap(ctx context.Context, files []fileinfo.FileInfo, f Func, opts Options) *ResultStream {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	chans := make([]chan Result, len(files))
	for i := range chans {
		chans[i] = make(chan Result, 1)
	}
	jobs := make(chan job)

	for w := 0; w < maxWorkers; w++ {
		g.Go(func() error {
			if opts.WorkerType == ProcessWorker {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
			}
			if opts.Init != nil {
				if err := opts.Init(); err != nil {
					return err
				}
			}
			for {
				select {
				case j, ok := <-jobs:
					if !ok {
						return nil
					}
					metrics.Default().WorkerStarted()
					res := runOne(gctx, j.info, f, opts)
					metrics.Default().WorkerStopped()
					chans[j.index] <- res
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	go func() {
		for i, fi := range files {
			select {
			case jobs <- job{index: i, info: fi}:
			case <-gctx.Done():
				close(jobs)
				return
			}
		}
		close(jobs)
	}()

	return &ResultStream{ctx: gctx, cancel: cancel, g: g, chans: chans}
}

// Next returns the next Result in input order, blocking until it is ready.
// ok is false once every file has been consumed.
func (s *ResultStream) Next() (Result, bool, error) {
	if s.next >= len(s.chans) {
		return Result{}, false, nil
	}
	select {
	case res := <-s.chans[s.next]:
		s.next++
		return res, true, nil
	case <-s.ctx.Done():
		return Result{}, false, s.ctx.Err()
	}
}

// Close cancels any in-flight or queued work.
func (s *ResultStream) Close() {
	s.cancel()
}

// Wait blocks until every worker goroutine has exited and returns the first
// non-nil error raised by an Init callback or context cancellation (task-
// level errors are carried in each Result, not here).
func (s *ResultStream) Wait() error {
	return s.g.Wait()
}

// Map runs f over every file and returns the results in input order, having
// fully drained the underlying ResultStream.
func Map(ctx context.Context, files []fileinfo.FileInfo, f Func, opts Options) ([]Result, error) {
	stream := IMap(ctx, files, f, opts)
	defer stream.Close()

	results := make([]Result, 0, len(files))
	for {
		res, ok, err := stream.Next()
		if err != nil {
			return results, err
		}
		if !ok {
			break
		}
		results = append(results, res)
	}
	return results, stream.Wait()
}

func runOne(ctx context.Context, fi fileinfo.FileInfo, f Func, opts Options) Result {
	var content []byte
	if opts.OnContent && opts.Reader != nil {
		c, err := opts.Reader(fi)
		if err != nil {
			return Result{Info: fi, Err: err}
		}
		content = c
	}

	val, err := f(ctx, fi, content)
	if err != nil {
		return Result{Info: fi, Err: err}
	}
	res := Result{Info: fi, Value: val}
	if opts.Sink == nil || val == nil {
		return res
	}

	path, err := opts.Sink.Render(fi)
	if err != nil {
		res.Err = err
		return res
	}
	if err := opts.Sink.Write(path, val); err != nil {
		res.Err = err
		return res
	}
	res.Written = true
	return res
}
