package terminal

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// fakeProcess is a scriptable Process. With echo set, writes come back as
// output the way a terminal echoes typed input.
type fakeProcess struct {
	pid    int
	echo   bool
	events chan ProcessEvent

	mu      sync.Mutex
	written bytes.Buffer
	sizes   [][2]int
	kills   int
	exited  bool
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, events: make(chan ProcessEvent, 256)}
}

func (p *fakeProcess) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return errors.New("write to exited process")
	}
	p.written.Write(data)
	if p.echo {
		echoed := bytes.ReplaceAll(data, []byte("\r"), []byte("\r\n"))
		p.events <- ProcessEvent{Kind: EventData, Data: echoed}
	}
	return nil
}

func (p *fakeProcess) Resize(cols, rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizes = append(p.sizes, [2]int{cols, rows})
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.kills++
	p.mu.Unlock()
	p.exit(ExitStatus{Code: 129, Signal: "SIGHUP"})
	return nil
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Events() <-chan ProcessEvent { return p.events }

func (p *fakeProcess) emit(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exited {
		p.events <- ProcessEvent{Kind: EventData, Data: []byte(data)}
	}
}

func (p *fakeProcess) exit(es ExitStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return
	}
	p.exited = true
	p.events <- ProcessEvent{Kind: EventExit, Exit: &es}
	close(p.events)
}

func (p *fakeProcess) writtenString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *fakeProcess) killCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kills
}

func (p *fakeProcess) resizes() [][2]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]int(nil), p.sizes...)
}

// fakeSpawner hands out fakeProcesses and remembers them in spawn order.
type fakeSpawner struct {
	mu    sync.Mutex
	echo  bool
	err   error
	procs []*fakeProcess
	opts  []SpawnOptions
}

func (s *fakeSpawner) Spawn(opts SpawnOptions) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess(1000 + len(s.procs))
	p.echo = s.echo
	s.procs = append(s.procs, p)
	s.opts = append(s.opts, opts)
	return p, nil
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1]
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingObserver counts lifecycle callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	started  int
	exited   map[string]int
	removed  map[string]int
	attached int
	detached int
	dropped  int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{exited: map[string]int{}, removed: map[string]int{}}
}

func (o *recordingObserver) SessionStarted(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) SessionExited(_, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.exited[status]++
}

func (o *recordingObserver) SessionRemoved(_, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed[reason]++
}

func (o *recordingObserver) ViewerAttached() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attached++
}

func (o *recordingObserver) ViewerDetached(dropped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detached++
	if dropped {
		o.dropped++
	}
}

type observerCounts struct {
	started  int
	exited   map[string]int
	removed  map[string]int
	attached int
	detached int
	dropped  int
}

func (o *recordingObserver) snapshot() observerCounts {
	o.mu.Lock()
	defer o.mu.Unlock()
	return observerCounts{
		started:  o.started,
		attached: o.attached,
		detached: o.detached,
		dropped:  o.dropped,
		exited:   copyCounts(o.exited),
		removed:  copyCounts(o.removed),
	}
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
