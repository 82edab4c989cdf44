package trace

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Writer persists the current contents of a LogStore, e.g. to a file or
// object store. Errors are expected to be transient and are deduplicated
// by the scheduler rather than retried aggressively.
type Writer interface {
	Flush(entries []Entry) error
}

// FlushScheduler calls writer.Flush after flushEvery appends OR
// flushIntervalMs elapsed, whichever comes first (spec §4.5), grounded on
// the teacher's AsyncExporter worker/ticker pattern. Errors are
// deduplicated by their message and logged at most once per distinct message.
type FlushScheduler struct {
	store           *LogStore
	writer          Writer
	flushEvery      int
	flushInterval   time.Duration
	log             *logrus.Entry
	mu              sync.Mutex
	sinceLastFlush  int
	seenErrors      map[string]bool
	stop            chan struct{}
	stopped         chan struct{}
}

// NewFlushScheduler starts the background ticker goroutine immediately.
func NewFlushScheduler(store *LogStore, writer Writer, flushEvery int, flushInterval time.Duration, log *logrus.Entry) *FlushScheduler {
	if flushEvery <= 0 {
		flushEvery = 50
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &FlushScheduler{
		store:         store,
		writer:        writer,
		flushEvery:    flushEvery,
		flushInterval: flushInterval,
		log:           log,
		seenErrors:    map[string]bool{},
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *FlushScheduler) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			s.FlushNow(true)
			return
		case <-ticker.C:
			s.FlushNow(false)
		}
	}
}

// NotifyAppend is called once per trace entry appended; when the count
// since the last flush reaches flushEvery, it triggers an immediate flush.
func (s *FlushScheduler) NotifyAppend() {
	s.mu.Lock()
	s.sinceLastFlush++
	due := s.sinceLastFlush >= s.flushEvery
	s.mu.Unlock()
	if due {
		s.FlushNow(false)
	}
}

// FlushNow runs the writer over the store's current entries. force=true is
// used on shutdown; its only effect here is bypassing the "nothing to do"
// no-op when the store is empty, since shutdown must still observe a
// flush attempt for operability logs.
func (s *FlushScheduler) FlushNow(force bool) {
	entries := s.store.Snapshot()
	if len(entries) == 0 && !force {
		return
	}
	s.mu.Lock()
	s.sinceLastFlush = 0
	s.mu.Unlock()

	if err := s.writer.Flush(entries); err != nil {
		key := err.Error()
		s.mu.Lock()
		seen := s.seenErrors[key]
		s.seenErrors[key] = true
		s.mu.Unlock()
		if !seen {
			s.log.WithError(err).Warn("trace log flush failed")
		}
	}
}

// Shutdown stops the ticker goroutine after a final forced flush.
func (s *FlushScheduler) Shutdown() {
	close(s.stop)
	<-s.stopped
}
