package layer

import "math"

func (l *layer) RegisterEventListener(index int, eventName string, fn func()) bool {
	if !l.checkIndex("register_event_listener", index) || fn == nil {
		return false
	}
	found := false
	for _, ev := range l.states[index].Events() {
		if ev.Name == eventName {
			found = true
			break
		}
	}
	if !found {
		l.logger.Warn("layer: unknown event", "layer", l.name, "state", l.states[index].Name(), "event", eventName)
		return false
	}
	byName, ok := l.listeners[index]
	if !ok {
		byName = make(map[string][]func())
		l.listeners[index] = byName
	}
	byName[eventName] = append(byName[eventName], fn)
	return true
}

// fireEvents calls the listeners of every event whose time was crossed since the previous update, gated by the
// state's weight and whether it is the current state.
func (l *layer) fireEvents() {
	for i, s := range l.states {
		inst := l.instances[i]
		t := inst.Time()
		prev := l.lastEventTime[i]
		l.lastEventTime[i] = t

		events := s.Events()
		if len(events) == 0 {
			continue
		}
		w := l.mixer.InputWeight(i)
		if w <= 0 {
			continue
		}
		d := inst.Duration()
		for _, ev := range events {
			if ev.MustBeActiveState && i != l.current {
				continue
			}
			if w < ev.MinWeight {
				continue
			}
			if !crossed(prev, t, ev.Time, d, s.Loops()) {
				continue
			}
			for _, fn := range l.listeners[i][ev.Name] {
				fn()
			}
		}
	}
}

// crossed reports whether playback moving from prev to cur passed the event at time at. Looping playback
// counts every wrap of duration. A negative prev means the state just started.
func crossed(prev, cur, at, duration float32, loop bool) bool {
	if cur < prev {
		prev = -1
	}
	if !loop || duration <= 0 {
		return prev < at && at <= cur
	}
	p := float64(prev)
	if p < 0 {
		p = -1e-9
	}
	d := float64(duration)
	a := float64(at)
	return math.Floor((float64(cur)-a)/d) > math.Floor((p-a)/d)
}
