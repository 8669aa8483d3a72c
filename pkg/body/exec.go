package body

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrLoopClosed is returned when work is submitted to a closed Loop.
var ErrLoopClosed = errors.New("loop is closed")

// WriteBlocking writes w to out on the calling goroutine.
func WriteBlocking(w Writer, out io.Writer) error {
	return w.WriteBody(out)
}

// Task is a body write running in the background.
type Task struct {
	group *errgroup.Group
	done  chan struct{}
	err   error
}

// WriteAsync starts writing w to out on a new goroutine. The write observes ctx.
func WriteAsync(ctx context.Context, w AsyncWriter, out io.Writer) *Task {
	group, gctx := errgroup.WithContext(ctx)
	t := &Task{group: group, done: make(chan struct{})}
	group.Go(func() error {
		return w.WriteBody(gctx, out)
	})
	go func() {
		t.err = group.Wait()
		close(t.done)
	}()
	return t
}

// Done is closed once the write has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the write has finished and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Loop is a single goroutine executing submitted functions one after another. Local writers
// run on it so that state they capture is never touched by two goroutines.
type Loop struct {
	jobs      chan func()
	group     errgroup.Group
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewLoop starts a loop. backlog is the number of jobs that may be queued before Submit blocks.
func NewLoop(backlog int) *Loop {
	if backlog < 0 {
		backlog = 0
	}
	l := &Loop{jobs: make(chan func(), backlog)}
	l.group.Go(func() error {
		for job := range l.jobs {
			job()
		}
		return nil
	})
	return l
}

// Submit queues fn for execution on the loop goroutine.
func (l *Loop) Submit(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLoopClosed
	}
	l.jobs <- fn
	return nil
}

// Close stops accepting work, runs everything already queued and waits for the loop to exit.
func (l *Loop) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.jobs)
		l.mu.Unlock()
	})
	return l.group.Wait()
}

// WriteLocal runs w on the loop and waits for it to finish. A job that starts after ctx is
// done is not run. WriteLocal always waits for a started write, so out is never used after
// it returns.
func WriteLocal(ctx context.Context, l *Loop, w LocalWriter, out io.Writer) error {
	result := make(chan error, 1)
	err := l.Submit(func() {
		if err := ctx.Err(); err != nil {
			result <- err
			return
		}
		result <- w.WriteBody(ctx, out)
	})
	if err != nil {
		return err
	}
	return <-result
}

// Pipe returns the reading end of the stream w writes. The writer starts on its own goroutine
// at the first Read; a pipe closed before any Read never runs it. Closing the reader stops the
// writer at its next write and waits for it to return.
func Pipe(ctx context.Context, w AsyncWriter) io.ReadCloser {
	pr, pw := io.Pipe()
	return &pipeReader{ctx: ctx, writer: w, pr: pr, pw: pw}
}

type pipeReader struct {
	ctx    context.Context
	writer AsyncWriter
	pr     *io.PipeReader
	pw     *io.PipeWriter
	start  sync.Once
	group  errgroup.Group
}

func (p *pipeReader) Read(b []byte) (int, error) {
	p.start.Do(func() {
		p.group.Go(func() error {
			err := p.writer.WriteBody(p.ctx, p.pw)
			p.pw.CloseWithError(err)
			return err
		})
	})
	return p.pr.Read(b)
}

func (p *pipeReader) Close() error {
	// A Read after Close must not start the writer.
	p.start.Do(func() {})
	err := p.pr.Close()
	// The writer's own error has already been delivered to the reader.
	_ = p.group.Wait()
	return err
}
