package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "hwbot/pkg/logx"
)

const (
	fileKeep         = 5000
	fileCompactEvery = 1000
	maxLineBytes     = 1 << 20
)

// fileStore keeps deliveries in <prefix>.deliveries.jsonl (JSON Lines).
//
// Every fileCompactEvery appends the file is rewritten to its last fileKeep
// entries.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	path   string
	f      *os.File
	writes int
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	jsonl := filepath.Join(dir, base) + ".deliveries.jsonl"

	f, err := os.OpenFile(jsonl, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	log.Info("delivery journal opened", logx.String("driver", "file"), logx.String("path", jsonl))
	return &fileStore{log: log, path: jsonl, f: f}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

func (s *fileStore) AppendDelivery(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("delivery journal closed")
	}
	if err := json.NewEncoder(s.f).Encode(d); err != nil {
		return err
	}
	s.writes++
	if s.writes%fileCompactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("delivery journal compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) Recent(ctx context.Context, n int) ([]Delivery, error) {
	if n <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil, ErrDisabled
	}
	return readTail(ctx, s.path, n)
}

// readTail returns the last n decodable entries of a JSON Lines file.
// Corrupt lines (e.g. a torn write) are skipped.
func readTail(ctx context.Context, path string, n int) ([]Delivery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]Delivery, 0, n)
	start := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var d Delivery
		if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
			continue
		}
		if len(ring) < n {
			ring = append(ring, d)
			continue
		}
		ring[start] = d
		start = (start + 1) % n
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return append(ring[start:], ring[:start]...), nil
}

func (s *fileStore) compactLocked() error {
	keep, err := readTail(context.Background(), s.path, fileKeep)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, d := range keep {
		if err := enc.Encode(d); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}

	nf, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	_ = s.f.Close()
	s.f = nf
	return nil
}
