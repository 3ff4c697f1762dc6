package sky

import (
	"fmt"
	"strings"
)

// Trigger records why an update ran.
type Trigger uint8

const (
	// TriggerWarmup: frames are still required after a settings swap or resource recreation.
	TriggerWarmup = Trigger(1 << iota)
	TriggerHashChanged
	TriggerPeriod
	TriggerRequested
)

func (t Trigger) String() string {
	if t == 0 {
		return "none"
	}
	var names []string
	for _, n := range []struct {
		bit  Trigger
		name string
	}{{TriggerWarmup, "warmup"}, {TriggerHashChanged, "hash"}, {TriggerPeriod, "period"}, {TriggerRequested, "requested"}} {
		if t&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

type SchedulerState int

const (
	StateIdle = SchedulerState(iota)
	StatePendingRecompute
	StateAwaitingGIRefresh
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePendingRecompute:
		return "PendingRecompute"
	case StateAwaitingGIRefresh:
		return "AwaitingGIRefresh"
	}
	return fmt.Sprintf("SchedulerState(%d)", int(s))
}

// UpdateState is the bookkeeping of the update scheduler.
type UpdateState struct {
	LastAppliedHash uint64
	FramesRequired  int
	// seconds since the last update
	AccumulatedTime float32
	PendingGI       bool
}

const warmupFrames = 2

// UpdateScheduler decides once per frame whether the environment has to be recomputed
// and delays the global illumination refresh by one frame. It is not safe for concurrent use.
type UpdateScheduler struct {
	state     UpdateState
	requested bool
	pending   Trigger
	// hash that GI was notified about, or will be, since the last recreation
	notifiedHash uint64
	notified     bool
}

func NewUpdateScheduler() *UpdateScheduler {
	return &UpdateScheduler{
		state: UpdateState{
			LastAppliedHash: HashUnset,
			FramesRequired:  warmupFrames,
		},
	}
}

func (s *UpdateScheduler) State() UpdateState {
	return s.state
}

func (s *UpdateScheduler) Phase() SchedulerState {
	switch {
	case s.pending != 0:
		return StatePendingRecompute
	case s.state.PendingGI:
		return StateAwaitingGIRefresh
	default:
		return StateIdle
	}
}

// Invalidate is called when the settings are swapped for a different object.
func (s *UpdateScheduler) Invalidate() {
	s.state.LastAppliedHash = HashUnset
	s.state.FramesRequired = warmupFrames
}

// ResourcesRecreated forces the warm-up frames after the cube maps lost their content.
// A pending GI refresh is dropped since it refers to the old cube maps; the warm-up
// schedules a new one. A cleared environment is cleared again.
func (s *UpdateScheduler) ResourcesRecreated() {
	s.state.FramesRequired = warmupFrames
	s.state.PendingGI = false
	s.notified = false
	if s.state.LastAppliedHash == HashNone {
		s.state.LastAppliedHash = HashUnset
	}
}

// Request asks for an update on the next evaluation, in any mode.
func (s *UpdateScheduler) Request() {
	s.state.FramesRequired = max(s.state.FramesRequired, 1)
	s.requested = true
}

// TakeGIRefresh reports whether the refresh scheduled by the previous frame is due and clears it.
func (s *UpdateScheduler) TakeGIRefresh() bool {
	due := s.state.PendingGI
	s.state.PendingGI = false
	return due
}

// Evaluate advances the time of a valid environment and returns why it has to be
// recomputed this frame, or 0.
func (s *UpdateScheduler) Evaluate(mode UpdateMode, period float32, hash uint64, dt float32) Trigger {
	s.state.AccumulatedTime += dt

	var t Trigger
	if s.state.FramesRequired > 0 {
		t |= TriggerWarmup
	}
	if s.requested {
		t |= TriggerRequested
	}
	if mode == UpdateOnChanged && hash != s.state.LastAppliedHash {
		t |= TriggerHashChanged
	}
	if mode == UpdateRealtime && s.state.AccumulatedTime > period {
		t |= TriggerPeriod
	}
	s.pending = t
	return t
}

// Applied records that the update decided by Evaluate was recorded.
// The GI refresh is scheduled for the next frame unless the update only warmed up
// an environment GI already knows about.
func (s *UpdateScheduler) Applied(hash uint64) {
	t := s.pending
	s.pending = 0
	s.requested = false

	s.state.LastAppliedHash = hash
	s.state.AccumulatedTime = 0
	s.state.FramesRequired = max(s.state.FramesRequired-1, 0)

	if t == TriggerWarmup && s.notified && s.notifiedHash == hash {
		return
	}
	s.state.PendingGI = true
	s.notifiedHash = hash
	s.notified = true
}

// Skipped drops an update decided by Evaluate that could not be recorded.
func (s *UpdateScheduler) Skipped() {
	s.pending = 0
}

// NeedsClear reports whether the environment became invalid since it was last applied.
func (s *UpdateScheduler) NeedsClear() bool {
	return s.state.LastAppliedHash != HashNone
}

// Cleared records that the cube maps were reset to the black environment.
func (s *UpdateScheduler) Cleared() {
	s.state.LastAppliedHash = HashNone
	s.state.PendingGI = true
	s.notifiedHash = HashNone
	s.notified = true
}
