package xref

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/seqmine/internal/ir"
)

// ErrLocked is returned when another process holds the snapshot.
var ErrLocked = errors.New("xref: snapshot is locked by another process")

// Snapshot is the on-disk home of a State.
//
// Files, all next to path:
//
//	<path>          zstd-compressed JSON state
//	<path>.bkp      the previous state, used if <path> is missing or corrupt
//	<path>.journal  completions since the last save, one "id seq" per line
//	<path>.lock     held while the snapshot is open
//
// A Snapshot has a single writer; it is not safe for concurrent use.
type Snapshot struct {
	path    string
	state   *State
	journal *os.File
	logger  *slog.Logger
}

// OpenSnapshot locks path, loads the saved state and replays the journal.
func OpenSnapshot(path string) (*Snapshot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("xref: snapshot dir: %w", err)
	}
	s := &Snapshot{path: path, logger: slog.Default()}
	if err := s.lock(); err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		_ = os.Remove(path + ".lock")
		return nil, err
	}
	var err error
	s.journal, err = os.OpenFile(path+".journal", os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		_ = os.Remove(path + ".lock")
		return nil, fmt.Errorf("xref: open journal: %w", err)
	}
	return s, nil
}

// lock creates <path>.lock holding our pid. A lock whose pid is no longer
// running is left over from a crashed run and is taken over once.
func (s *Snapshot) lock() error {
	name := s.path + ".lock"
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			return f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("xref: lock snapshot: %w", err)
		}
		pid, ok := lockOwner(name)
		if attempt > 0 || !ok || processAlive(pid) {
			return fmt.Errorf("%w: remove %s if no other run is active", ErrLocked, name)
		}
		s.logger.Warn("xref snapshot lock is stale, taking over", "path", name, "pid", pid)
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("xref: remove stale lock: %w", err)
		}
	}
}

// lockOwner reads the pid recorded in a lock file. Unreadable or malformed
// locks report ok=false and are treated as held.
func lockOwner(name string) (int, bool) {
	data, err := os.ReadFile(name)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

// State returns the live state.
func (s *Snapshot) State() *State { return s.state }

// Path returns the snapshot path.
func (s *Snapshot) Path() string { return s.path }

func (s *Snapshot) load() error {
	state, err := readState(s.path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		state = nil
	default:
		s.logger.Warn("xref snapshot unreadable, trying backup", "path", s.path, "error", err)
		state = nil
	}
	if state == nil {
		bkp, err := readState(s.path + ".bkp")
		switch {
		case err == nil:
			state = bkp
		case errors.Is(err, fs.ErrNotExist):
			state = NewState()
		default:
			return fmt.Errorf("xref: snapshot and backup unreadable: %w", err)
		}
	}
	s.state = state

	replayed, err := s.replay()
	if err != nil {
		return err
	}
	if replayed > 0 {
		s.logger.Info("xref journal replayed", "completions", replayed)
	}
	return nil
}

func readState(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	var d snapshotDoc
	if err := json.Unmarshal(plain, &d); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if d.Version != snapshotVersion {
		return nil, fmt.Errorf("decode %s: unsupported version %d", path, d.Version)
	}
	return stateFromDoc(d), nil
}

// replay applies journal lines. A torn last line is ignored.
func (s *Snapshot) replay() (int, error) {
	f, err := os.Open(s.path + ".journal")
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("xref: open journal: %w", err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		id, seq, ok := parseJournalLine(sc.Text())
		if !ok {
			continue
		}
		if s.state.Complete(id, seq) {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("xref: read journal: %w", err)
	}
	return n, nil
}

func parseJournalLine(line string) (ir.ID, uint64, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return "", 0, false
	}
	id, err := ir.ParseID(fields[0])
	if err != nil {
		return "", 0, false
	}
	seq, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return id, seq, true
}

// Complete marks a as done against generation seq and makes the mark
// durable before returning.
func (s *Snapshot) Complete(a ir.ID, seq uint64) error {
	s.state.Complete(a, seq)
	if _, err := fmt.Fprintf(s.journal, "%s %d\n", a, seq); err != nil {
		return fmt.Errorf("xref: append journal: %w", err)
	}
	if err := s.journal.Sync(); err != nil {
		return fmt.Errorf("xref: sync journal: %w", err)
	}
	return nil
}

// Save compacts the state, writes it atomically, keeps the previous file as
// a backup and truncates the journal.
func (s *Snapshot) Save() error {
	s.state.Compact()
	plain, err := json.Marshal(s.state.doc())
	if err != nil {
		return fmt.Errorf("xref: encode snapshot: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("xref: snapshot encoder: %w", err)
	}
	data := enc.EncodeAll(plain, nil)
	_ = enc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".xref-*")
	if err != nil {
		return fmt.Errorf("xref: write snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xref: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("xref: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("xref: write snapshot: %w", err)
	}

	if err := os.Rename(s.path, s.path+".bkp"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("xref: backup snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("xref: install snapshot: %w", err)
	}

	if err := s.journal.Truncate(0); err != nil {
		return fmt.Errorf("xref: truncate journal: %w", err)
	}
	if _, err := s.journal.Seek(0, 0); err != nil {
		return fmt.Errorf("xref: truncate journal: %w", err)
	}
	s.logger.Debug("xref snapshot saved", "path", s.path, "bytes", len(data), "done", len(s.state.Done))
	return nil
}

// Close releases the journal and the lock. It does not save.
func (s *Snapshot) Close() error {
	var errs []error
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
		s.journal = nil
	}
	if err := os.Remove(s.path + ".lock"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
