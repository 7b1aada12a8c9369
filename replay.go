package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/credview/credview/cache"
	"github.com/credview/credview/kernel"
	"github.com/credview/credview/outputformats"
	"github.com/credview/credview/probe"
	"github.com/credview/credview/types"
)

// ReplayEvent is one exec-commit observation in the JSONL input stream.
// Optional objects are pointers: a missing cred, file or superblock
// replays the corresponding absent kernel reference.
type ReplayEvent struct {
	Worker   int         `json:"worker"`
	PerClear uint32      `json:"per_clear"`
	Pid      uint32      `json:"pid"`
	Tgid     uint32      `json:"tgid"`
	Comm     string      `json:"comm,omitempty"`
	Cred     *ReplayCred `json:"cred,omitempty"`
	Task     ReplayTask  `json:"task"`
	File     *ReplayFile `json:"file,omitempty"`
}

type ReplayCred struct {
	Euid uint32 `json:"euid"`
	Egid uint32 `json:"egid"`
}

type ReplayTask struct {
	Uid uint32 `json:"uid"`
	Gid uint32 `json:"gid"`
}

type ReplayFile struct {
	Ino        uint64            `json:"ino"`
	Nlink      uint32            `json:"nlink"`
	Superblock *ReplaySuperblock `json:"superblock,omitempty"`
}

type ReplaySuperblock struct {
	Dev    uint32 `json:"dev"`
	FsType string `json:"fs_type"`
}

// toKernel rebuilds the kernel object graph this event describes
func (ev *ReplayEvent) toKernel() (*kernel.Binprm, *kernel.Task) {
	var cred *kernel.Cred
	if ev.Cred != nil {
		cred = kernel.NewCred(0, 0, ev.Cred.Euid, ev.Cred.Egid)
	}

	var file *kernel.File
	if ev.File != nil {
		var sb *kernel.SuperBlock
		if ev.File.Superblock != nil {
			var fsType *kernel.FileSystemType
			if ev.File.Superblock.FsType != "" {
				fsType = kernel.NewFileSystemType(ev.File.Superblock.FsType)
			}
			sb = kernel.NewSuperBlock(ev.File.Superblock.Dev, fsType)
		}
		file = kernel.NewFile(kernel.NewInode(ev.File.Ino, ev.File.Nlink, sb))
	}

	bprm := kernel.NewBinprm(ev.PerClear, cred, file)
	task := kernel.NewTask(ev.Pid, ev.Tgid, kernel.NewCred(ev.Task.Uid, ev.Task.Gid, ev.Task.Uid, ev.Task.Gid))
	return bprm, task
}

// Replayer drives replayed exec-commit events through the probe on one
// goroutine per worker, then plays event assembler: it drains committed
// records from the cache and hands them to the formatter.
type Replayer struct {
	probe     *probe.Probe
	cache     cache.JoinedInfoCache
	formatter outputformats.EventFormatter
	engine    *FilterEngine
	logger    *Logger

	channels []chan ReplayEvent
	wg       sync.WaitGroup

	// partial trailing line carried between drains in follow mode
	pending string
}

func NewReplayer(p *probe.Probe, c cache.JoinedInfoCache, formatter outputformats.EventFormatter,
	engine *FilterEngine, logger *Logger) *Replayer {

	r := &Replayer{
		probe:     p,
		cache:     c,
		formatter: formatter,
		engine:    engine,
		logger:    logger,
		channels:  make([]chan ReplayEvent, p.Workers()),
	}
	for i := range r.channels {
		r.channels[i] = make(chan ReplayEvent, 256)
	}
	return r
}

// Start launches the worker goroutines
func (r *Replayer) Start() {
	for _, ch := range r.channels {
		r.wg.Add(1)
		go func(events <-chan ReplayEvent) {
			defer r.wg.Done()
			for ev := range events {
				r.handleEvent(ev)
			}
		}(ch)
	}
}

// Stop closes the worker channels and waits for in-flight events
func (r *Replayer) Stop() {
	for _, ch := range r.channels {
		close(ch)
	}
	r.wg.Wait()
}

// Dispatch routes an event to its worker's channel. Events naming a
// worker the probe has no slot for still go through a live worker so the
// scratch failure path is exercised honestly by the probe itself.
func (r *Replayer) Dispatch(ev ReplayEvent) {
	slot := ev.Worker
	if slot < 0 || slot >= len(r.channels) {
		slot = 0
	}
	r.channels[slot] <- ev
}

func (r *Replayer) handleEvent(ev ReplayEvent) {
	bprm, task := ev.toKernel()

	start := time.Now()
	r.probe.CommittingCreds(ev.Worker, bprm, task)
	hookDurations.Observe(time.Since(start).Seconds())
	invocationsTotal.Inc()

	// Event assembler side: join and retire the record if one was
	// committed for this thread id
	tid := task.PidTgid()
	info, ok := r.cache.Get(tid)
	if !ok || !info.IsSet {
		return
	}
	r.cache.Delete(tid)
	recordCommitByReason(info.SecureExec)

	event := &types.CredCommitEvent{
		Timestamp: time.Now(),
		Worker:    ev.Worker,
		TID:       tid,
		PID:       ev.Pid,
		Comm:      ev.Comm,
		Info:      info,
	}

	if emit, filter := r.engine.ShouldEmit(event); !emit {
		excludedEventsTotal.WithLabelValues(filter).Inc()
		r.logger.Trace("replay", "filtered commit for %s (%s)", ev.Comm, filter)
		return
	}

	if err := r.formatter.FormatCredCommit(event); err != nil {
		replayErrorsTotal.WithLabelValues("format").Inc()
		r.logger.Warning("replay", "failed to format record for tid %d: %v", tid, err)
	}
}

// ReplayFile reads JSONL events from path and dispatches them. With
// follow set it keeps the file open and replays lines as they are
// appended, until the context is cancelled.
func (r *Replayer) ReplayFile(ctx context.Context, path string, follow bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %v", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	if err := r.drainLines(reader); err != nil {
		return err
	}
	if !follow {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch %s: %v", path, err)
	}
	r.logger.Info("replay", "following %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write != 0 {
				if err := r.drainLines(reader); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warning("replay", "watch error: %v", err)
		}
	}
}

// drainLines dispatches every complete line currently available
func (r *Replayer) drainLines(reader *bufio.Reader) error {
	for {
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			// Hold a partial trailing line until the writer finishes it
			r.pending += line
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %v", err)
		}

		line = r.pending + line
		r.pending = ""

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var ev ReplayEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			replayErrorsTotal.WithLabelValues("parse").Inc()
			r.logger.Warning("replay", "skipping malformed event: %v", err)
			continue
		}
		r.Dispatch(ev)
	}
}
