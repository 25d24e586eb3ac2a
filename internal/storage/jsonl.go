package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gnobounty/internal/model"
)

const (
	bountiesFile     = "bounties.jsonl"
	applicationsFile = "applications.jsonl"
	leaderboardFile  = "leaderboard.jsonl"
)

// LeaderboardRow is one leaderboard entry stamped with its snapshot time.
type LeaderboardRow struct {
	TakenAt string `json:"takenAt"`
	model.LeaderboardEntry
}

// JsonlStorage appends snapshot records to JSONL files inside a directory.
type JsonlStorage struct {
	dir string
	mu  sync.Mutex
}

func NewJsonlStorage(dir string) *JsonlStorage {
	return &JsonlStorage{dir: dir}
}

// PutBounties appends bounties to bounties.jsonl.
func (s *JsonlStorage) PutBounties(_ context.Context, bounties []model.Bounty) error {
	return appendLines(s, bountiesFile, len(bounties), func(i int) interface{} { return bounties[i] })
}

// PutApplications appends applications to applications.jsonl.
func (s *JsonlStorage) PutApplications(_ context.Context, apps []model.Application) error {
	return appendLines(s, applicationsFile, len(apps), func(i int) interface{} { return apps[i] })
}

// PutLeaderboard appends leaderboard rows to leaderboard.jsonl.
func (s *JsonlStorage) PutLeaderboard(_ context.Context, takenAt time.Time, entries []model.LeaderboardEntry) error {
	stamp := takenAt.UTC().Format(time.RFC3339)
	return appendLines(s, leaderboardFile, len(entries), func(i int) interface{} {
		return LeaderboardRow{TakenAt: stamp, LeaderboardEntry: entries[i]}
	})
}

func appendLines(s *JsonlStorage, name string, n int, record func(int) interface{}) error {
	if n == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for i := 0; i < n; i++ {
		line, err := json.Marshal(record(i))
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", name, err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write %s record: %w", name, err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
