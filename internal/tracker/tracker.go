// Package tracker remembers the fingerprint of the last collected dataset
// per source in Redis and backs off scheduled runs while it stays unchanged.
package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/K11E3R/moroccan-education-API/internal/domain"
)

// ErrStateNotFound is returned when no state exists for a source.
var ErrStateNotFound = errors.New("dataset state not found")

const (
	// DefaultMaxInterval caps the interval between runs.
	DefaultMaxInterval = 24 * time.Hour
	defaultKeyPrefix   = "edu"
	exponentialBase    = 2.0
)

// State is the scheduling state of one source.
type State struct {
	LastHash        string        `json:"last_hash"`
	LastChangeAt    time.Time     `json:"last_change_at"`
	LastRunAt       time.Time     `json:"last_run_at"`
	NextRunAt       time.Time     `json:"next_run_at"`
	UnchangedCount  int           `json:"unchanged_count"`
	CurrentInterval time.Duration `json:"current_interval"`
}

// Tracker stores dataset fingerprints in Redis.
type Tracker struct {
	client      *redis.Client
	keyPrefix   string
	maxInterval time.Duration
}

// New creates a tracker. Empty prefix and non-positive maxInterval use defaults.
func New(client *redis.Client, keyPrefix string, maxInterval time.Duration) *Tracker {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if maxInterval <= 0 {
		maxInterval = DefaultMaxInterval
	}
	return &Tracker{client: client, keyPrefix: keyPrefix, maxInterval: maxInterval}
}

func (t *Tracker) key(source string) string {
	return t.keyPrefix + ":tracker:" + source
}

// Fingerprint hashes the identity of every record in run. Collection
// timestamps and the run id are left out so two runs over an unchanged site
// produce the same fingerprint.
func Fingerprint(run *domain.CollectionRun) string {
	lines := make([]string, 0, len(run.Levels)+len(run.Subjects)+len(run.Content))
	for _, l := range run.Levels {
		lines = append(lines, strings.Join([]string{"level", l.ID, l.Name, l.URL}, "\x1f"))
	}
	for _, s := range run.Subjects {
		lines = append(lines, strings.Join([]string{"subject", s.ID, s.Name, s.LevelID, s.URL}, "\x1f"))
	}
	for _, c := range run.Content {
		lines = append(lines, strings.Join([]string{
			string(c.ContentType), c.ID, c.Title, c.Description, c.LevelID, c.SubjectID, c.URL,
		}, "\x1f"))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Interval computes baseline * 2^unchangedCount, capped at maxInterval.
func Interval(baseline, maxInterval time.Duration, unchangedCount int) time.Duration {
	if unchangedCount <= 0 {
		return baseline
	}

	multiplier := math.Pow(exponentialBase, float64(unchangedCount))
	interval := time.Duration(float64(baseline) * multiplier)

	if interval > maxInterval || interval <= 0 {
		return maxInterval
	}

	return interval
}

// Due reports whether a run for source should start at now. A source with
// no state is always due.
func (t *Tracker) Due(ctx context.Context, source string, now time.Time) (bool, *State, error) {
	state, err := t.Get(ctx, source)
	if errors.Is(err, ErrStateNotFound) {
		return true, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return !now.Before(state.NextRunAt), state, nil
}

// Record compares hash with the stored fingerprint of source and saves the
// new state. startedAt is when the run began; the next run is due one
// interval after it. It returns the updated state and whether the dataset
// changed.
func (t *Tracker) Record(
	ctx context.Context,
	source, hash string,
	baseline time.Duration,
	startedAt time.Time,
) (*State, bool, error) {
	state, err := t.Get(ctx, source)
	if errors.Is(err, ErrStateNotFound) {
		state, err = &State{}, nil
	}
	if err != nil {
		return nil, false, err
	}

	changed := state.LastHash != hash
	if changed {
		state.LastHash = hash
		state.LastChangeAt = startedAt
		state.UnchangedCount = 0
		state.CurrentInterval = min(baseline, t.maxInterval)
	} else {
		state.UnchangedCount++
		state.CurrentInterval = Interval(baseline, t.maxInterval, state.UnchangedCount)
	}
	state.LastRunAt = startedAt
	state.NextRunAt = startedAt.Add(state.CurrentInterval)

	if err := t.save(ctx, source, state); err != nil {
		return nil, false, err
	}
	return state, changed, nil
}

// Get returns the stored state of source.
func (t *Tracker) Get(ctx context.Context, source string) (*State, error) {
	data, err := t.client.Get(ctx, t.key(source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset state: %w", err)
	}
	return &state, nil
}

// Reset forgets source.
func (t *Tracker) Reset(ctx context.Context, source string) error {
	if err := t.client.Del(ctx, t.key(source)).Err(); err != nil {
		return fmt.Errorf("failed to delete dataset state: %w", err)
	}
	return nil
}

func (t *Tracker) save(ctx context.Context, source string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset state: %w", err)
	}
	if err := t.client.Set(ctx, t.key(source), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set dataset state: %w", err)
	}
	return nil
}
