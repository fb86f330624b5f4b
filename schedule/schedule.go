// Package schedule holds the in-memory trigger model evaluated by the
// scheduler: the periodic trigger, the pending one-shot triggers and the
// sound pool.
package schedule

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

var ErrDuplicateTrigger = errors.New("duplicate time of day")

// TimeOfDay is a wall-clock hour and minute without a date
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Of returns the time of day of t, truncated to the minute
func Of(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Seconds returns the number of seconds since midnight
func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// secondOfDay returns the local wall-clock second of the day of t
func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// OneShotTrigger plays Sound once when the clock reaches At
type OneShotTrigger struct {
	At    TimeOfDay
	Sound string
}

// Pending is the set of one-shot triggers that have not fired yet, kept in
// ascending time-of-day order. Each time of day appears at most once.
type Pending struct {
	triggers []OneShotTrigger
}

// NewPending creates a pending set from triggers
func NewPending(triggers ...OneShotTrigger) (*Pending, error) {
	p := &Pending{}
	for _, t := range triggers {
		if err := p.Add(t); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add inserts a trigger, rejecting a time of day that is already pending
func (p *Pending) Add(t OneShotTrigger) error {
	i := sort.Search(len(p.triggers), func(i int) bool {
		return p.triggers[i].At.Seconds() >= t.At.Seconds()
	})
	if i < len(p.triggers) && p.triggers[i].At == t.At {
		return fmt.Errorf("%w: %s", ErrDuplicateTrigger, t.At)
	}

	p.triggers = append(p.triggers, OneShotTrigger{})
	copy(p.triggers[i+1:], p.triggers[i:])
	p.triggers[i] = t
	return nil
}

// Eligible returns the earliest pending trigger whose match window
// [At, At+window) contains now. The window does not wrap past midnight.
func (p *Pending) Eligible(now time.Time, window time.Duration) (OneShotTrigger, bool) {
	sec := secondOfDay(now)
	w := int(window / time.Second)
	for _, t := range p.triggers {
		start := t.At.Seconds()
		if sec >= start && sec < start+w {
			return t, true
		}
	}
	return OneShotTrigger{}, false
}

// Remove deletes the trigger scheduled at the given time of day
func (p *Pending) Remove(at TimeOfDay) bool {
	for i, t := range p.triggers {
		if t.At == at {
			p.triggers = append(p.triggers[:i], p.triggers[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether a trigger is pending at the given time of day
func (p *Pending) Has(at TimeOfDay) bool {
	for _, t := range p.triggers {
		if t.At == at {
			return true
		}
	}
	return false
}

func (p *Pending) Len() int {
	return len(p.triggers)
}

// Triggers returns a copy of the pending triggers in time-of-day order
func (p *Pending) Triggers() []OneShotTrigger {
	out := make([]OneShotTrigger, len(p.triggers))
	copy(out, p.triggers)
	return out
}

// Build creates the pending set from the scheduled sounds configuration,
// resolving each file name under timedDir. Entries with a malformed time of
// day are skipped and reported.
func Build(entries map[string]string, timedDir string) (*Pending, []error) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := &Pending{}
	var errs []error
	for _, k := range keys {
		at, err := ParseTimeOfDay(k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.Add(OneShotTrigger{At: at, Sound: filepath.Join(timedDir, entries[k])}); err != nil {
			errs = append(errs, err)
		}
	}
	return p, errs
}

// PeriodicTrigger fires every Interval, starting one interval after creation
type PeriodicTrigger struct {
	Interval   time.Duration
	NextFireAt time.Time
}

// NewPeriodic creates a trigger first due at start+interval
func NewPeriodic(interval time.Duration, start time.Time) PeriodicTrigger {
	return PeriodicTrigger{Interval: interval, NextFireAt: start.Add(interval)}
}

// Due reports whether the trigger should fire at now
func (p *PeriodicTrigger) Due(now time.Time) bool {
	return !now.Before(p.NextFireAt)
}

// Advance schedules the next firing one interval after now.
// NextFireAt never moves backwards.
func (p *PeriodicTrigger) Advance(now time.Time) {
	next := now.Add(p.Interval)
	if next.After(p.NextFireAt) {
		p.NextFireAt = next
	}
}

// Pool is the immutable set of interchangeable sounds for the periodic trigger
type Pool struct {
	sounds []string
}

// NewPool creates a pool holding a copy of sounds
func NewPool(sounds []string) Pool {
	s := make([]string, len(sounds))
	copy(s, sounds)
	return Pool{sounds: s}
}

// Pick chooses one sound using intn, which must return a value in [0, n)
func (p Pool) Pick(intn func(n int) int) (string, bool) {
	if len(p.sounds) == 0 {
		return "", false
	}
	return p.sounds[intn(len(p.sounds))], true
}

func (p Pool) Empty() bool {
	return len(p.sounds) == 0
}

func (p Pool) Len() int {
	return len(p.sounds)
}

// Sounds returns a copy of the pool contents
func (p Pool) Sounds() []string {
	out := make([]string, len(p.sounds))
	copy(out, p.sounds)
	return out
}

// Snapshot is a read-only copy of the schedule state
type Snapshot struct {
	Interval   time.Duration
	NextFireAt time.Time
	Pending    []OneShotTrigger
	PoolSize   int
}
