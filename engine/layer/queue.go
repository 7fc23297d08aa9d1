package layer

import (
	"math"

	"github.com/Carmen-Shannon/oxy-blend/engine/state"
)

type instructionKind int

const (
	afterSeconds instructionKind = iota
	whenCurrentDone
	secondsBeforeCurrentDone
	fractionBeforeCurrentDone
)

// Instruction says when a queued state change fires.
type Instruction struct {
	kind               instructionKind
	seconds            float32
	fraction           float32
	countFromQueueTime bool
}

// AfterSeconds fires d seconds after the instruction was queued, or after it reached the head of the queue.
//
// Parameters:
//   - d: the delay in seconds
//   - countFromQueueTime: true to count from the QueueStateChange call, false to count from reaching the head
//
// Returns:
//   - Instruction: the instruction
func AfterSeconds(d float32, countFromQueueTime bool) Instruction {
	return Instruction{kind: afterSeconds, seconds: d, countFromQueueTime: countFromQueueTime}
}

// WhenCurrentStateDone fires when the state playing at the time the instruction reaches the head finishes its
// current playthrough.
func WhenCurrentStateDone() Instruction {
	return Instruction{kind: whenCurrentDone}
}

// SecondsBeforeCurrentDone fires s seconds before the current state finishes its playthrough.
//
// Parameters:
//   - s: the lead time in seconds
//
// Returns:
//   - Instruction: the instruction
func SecondsBeforeCurrentDone(s float32) Instruction {
	return Instruction{kind: secondsBeforeCurrentDone, seconds: s}
}

// FractionBeforeCurrentDone fires when fraction f of the current state's duration remains.
//
// Parameters:
//   - f: the lead time as a fraction of the duration
//
// Returns:
//   - Instruction: the instruction
func FractionBeforeCurrentDone(f float32) Instruction {
	return Instruction{kind: fractionBeforeCurrentDone, fraction: f}
}

type queuedPlay struct {
	target      int
	data        *state.TransitionData
	instruction Instruction
	queuedAt    float32
	fireTime    float32
	resolved    bool
}

func (l *layer) QueueStateChange(index int, instruction Instruction) bool {
	if !l.checkIndex("queue_state_change", index) {
		return false
	}
	l.enqueue(queuedPlay{target: index, instruction: instruction})
	return true
}

func (l *layer) QueueStateChangeWith(index int, instruction Instruction, data state.TransitionData) bool {
	if !l.checkIndex("queue_state_change", index) {
		return false
	}
	if err := data.Validate(); err != nil {
		l.logger.Error("layer: invalid transition",
			"op", "queue_state_change",
			"layer", l.name,
			"state", l.states[index].Name(),
			"index", index,
			"error", err,
		)
		return false
	}
	l.enqueue(queuedPlay{target: index, instruction: instruction, data: &data})
	return true
}

func (l *layer) ClearQueue() {
	l.queue = nil
}

func (l *layer) QueuedCount() int {
	return len(l.queue)
}

func (l *layer) enqueue(q queuedPlay) {
	q.queuedAt = l.clock
	if q.instruction.kind == afterSeconds && q.instruction.countFromQueueTime {
		q.fireTime = q.queuedAt + q.instruction.seconds
		q.resolved = true
	}
	l.queue = append(l.queue, q)
	if len(l.queue) == 1 {
		l.resolveHead()
	}
}

// resolveHead fixes the fire time of the queue head against the state playing right now.
func (l *layer) resolveHead() {
	head := &l.queue[0]
	if head.resolved {
		return
	}
	in := head.instruction
	switch in.kind {
	case afterSeconds:
		head.fireTime = l.clock + in.seconds
	case whenCurrentDone:
		head.fireTime = l.clock + l.remaining()
	case secondsBeforeCurrentDone:
		head.fireTime = l.clock + max(0, l.remaining()-in.seconds)
	case fractionBeforeCurrentDone:
		head.fireTime = l.clock + max(0, l.remaining()-in.fraction*l.currentDuration())
	}
	head.resolved = true
}

// drainQueue plays every head instruction that is due, resolving each new head as it comes up.
func (l *layer) drainQueue() {
	for len(l.queue) > 0 {
		l.resolveHead()
		head := l.queue[0]
		if l.clock < head.fireTime {
			return
		}
		l.queue = l.queue[1:]

		data := l.defaultFor(l.current, head.target)
		if head.data != nil {
			data = *head.data
		}
		if l.play(head.target, data, false) != nil {
			l.metrics.QueueFired(l.name)
		}
	}
}

func (l *layer) currentDuration() float32 {
	if l.current < 0 {
		return 0
	}
	return l.instances[l.current].Duration()
}

// remaining is the time left in the current playthrough of the current state.
func (l *layer) remaining() float32 {
	if l.current < 0 {
		return 0
	}
	inst := l.instances[l.current]
	d := inst.Duration()
	if d <= 0 {
		return 0
	}
	t := inst.Time()
	if l.states[l.current].Loops() {
		t = float32(math.Mod(float64(t), float64(d)))
		if t < 0 {
			t += d
		}
	}
	return max(0, d-t)
}
