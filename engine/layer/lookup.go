package layer

import (
	"github.com/Carmen-Shannon/oxy-blend/common"
	"github.com/Carmen-Shannon/oxy-blend/engine/state"
	"github.com/google/uuid"
)

// rebuildIndex rebuilds the name and GUID indices from the state list.
func (l *layer) rebuildIndex() {
	l.nameIndex = make(map[string]int, len(l.states))
	l.guidIndex = make(map[uuid.UUID]int, len(l.states))
	for i, s := range l.states {
		if _, dup := l.nameIndex[s.Name()]; !dup {
			l.nameIndex[s.Name()] = i
		}
		l.guidIndex[s.GUID()] = i
	}
}

// rebuildLookup rebuilds the dense from*n+to matrix of default transitions. The first default registered for a
// pair wins.
func (l *layer) rebuildLookup() {
	n := len(l.states)
	l.lookup = make([]int, n*n)
	for i := range l.lookup {
		l.lookup[i] = -1
	}
	for ti := range l.transitions {
		l.registerDefault(ti)
	}
}

// growLookup resizes the matrix after the state at index was appended, keeping the existing entries and adding
// the defaults that involve the new state.
func (l *layer) growLookup(index int) {
	oldN := index
	n := len(l.states)
	lookup := make([]int, n*n)
	for i := range lookup {
		lookup[i] = -1
	}
	for from := 0; from < oldN; from++ {
		copy(lookup[from*n:from*n+oldN], l.lookup[from*oldN:(from+1)*oldN])
	}
	l.lookup = lookup
	id := l.states[index].GUID()
	for ti, t := range l.transitions {
		if t.From == id || t.To == id {
			l.registerDefault(ti)
		}
	}
}

func (l *layer) registerDefault(ti int) {
	t := l.transitions[ti]
	if !t.IsDefault {
		return
	}
	from, ok := l.guidIndex[t.From]
	if !ok {
		return
	}
	to, ok := l.guidIndex[t.To]
	if !ok {
		return
	}
	n := len(l.states)
	if l.lookup[from*n+to] >= 0 {
		l.logger.Warn("layer: duplicate default transition", "layer", l.name, "error", &common.LookupMissError{
			Layer: l.name,
			From:  l.states[from].Name(),
			To:    l.states[to].Name(),
		})
		return
	}
	l.lookup[from*n+to] = ti
}

// defaultFor returns the default transition authored from from to to, or the layer fallback.
func (l *layer) defaultFor(from, to int) state.TransitionData {
	n := len(l.states)
	if from < 0 || from >= n || to < 0 || to >= n {
		return l.defaultTransition
	}
	if ti := l.lookup[from*n+to]; ti >= 0 {
		return l.transitions[ti].Data
	}
	return l.defaultTransition
}

// namedFor finds the transition called name from from to to.
func (l *layer) namedFor(from, to int, name string) (state.TransitionData, bool) {
	if from < 0 || name == "" {
		return state.TransitionData{}, false
	}
	fromID, toID := l.states[from].GUID(), l.states[to].GUID()
	for _, t := range l.transitions {
		if t.Name == name && t.From == fromID && t.To == toID {
			return t.Data, true
		}
	}
	return state.TransitionData{}, false
}

// validateTransition checks the transition data. Transitions may reference states that are not part of the
// layer yet; they stay dormant until AddState brings the state in.
func (l *layer) validateTransition(t state.Transition) error {
	return t.Data.Validate()
}

func (l *layer) stateName(index int) string {
	if index < 0 || index >= len(l.states) {
		return ""
	}
	return l.states[index].Name()
}
