// Package blendspace computes mixer weights from named blend variables: 1D linear blending, 2D gradient band
// blending, and an aggregator that fans one variable out to every blend space consuming it.
package blendspace

import (
	"slices"
	"sort"
)

// Consumer is anything driven by named blend variables.
type Consumer interface {
	// Variables returns the names of the blend variables this consumer reads.
	Variables() []string

	// SetVariable delivers a new value for one of the consumer's variables. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the blend variable name
	//   - value: the new value
	SetVariable(name string, value float32)

	// Update applies any deferred recompute.
	Update()
}

// aggregator is the implementation of the Aggregator interface.
type aggregator struct {
	values    map[string]float32
	consumers map[string][]Consumer
	all       []Consumer
}

// Aggregator keeps the current value of every blend variable and the reverse index from variable name to the
// consumers reading it, so a single Set reaches every blend space without scanning them all.
type Aggregator interface {
	// Register adds a consumer and immediately delivers the current value of each of its variables that has
	// been set. Registering the same consumer twice is a no-op.
	//
	// Parameters:
	//   - c: the consumer to add
	Register(c Consumer)

	// Unregister removes a consumer. No-op if it was never registered.
	//
	// Parameters:
	//   - c: the consumer to remove
	Unregister(c Consumer)

	// Set stores the value and forwards it to every consumer of name.
	//
	// Parameters:
	//   - name: the blend variable name
	//   - value: the new value
	//
	// Returns:
	//   - int: the number of consumers the value reached
	Set(name string, value float32) int

	// Value returns the stored value of a variable.
	//
	// Parameters:
	//   - name: the blend variable name
	//
	// Returns:
	//   - float32: the value, 0 if never set
	//   - bool: true if the variable was set
	Value(name string) (float32, bool)

	// Names returns every variable that has a value or a consumer, sorted.
	Names() []string

	// ConsumerCount returns the number of registered consumers.
	ConsumerCount() int

	// Update calls Update on every registered consumer.
	Update()
}

var _ Aggregator = &aggregator{}

// NewAggregator creates an empty Aggregator.
//
// Returns:
//   - Aggregator: the new aggregator
func NewAggregator() Aggregator {
	return &aggregator{
		values:    make(map[string]float32),
		consumers: make(map[string][]Consumer),
	}
}

func (a *aggregator) Register(c Consumer) {
	if c == nil || slices.Contains(a.all, c) {
		return
	}
	a.all = append(a.all, c)
	for _, name := range c.Variables() {
		a.consumers[name] = append(a.consumers[name], c)
		if v, ok := a.values[name]; ok {
			c.SetVariable(name, v)
		}
	}
}

func (a *aggregator) Unregister(c Consumer) {
	idx := slices.Index(a.all, c)
	if idx < 0 {
		return
	}
	a.all = slices.Delete(a.all, idx, idx+1)
	for _, name := range c.Variables() {
		list := a.consumers[name]
		if i := slices.Index(list, c); i >= 0 {
			list = slices.Delete(list, i, i+1)
		}
		if len(list) == 0 {
			delete(a.consumers, name)
		} else {
			a.consumers[name] = list
		}
	}
}

func (a *aggregator) Set(name string, value float32) int {
	a.values[name] = value
	list := a.consumers[name]
	for _, c := range list {
		c.SetVariable(name, value)
	}
	return len(list)
}

func (a *aggregator) Value(name string) (float32, bool) {
	v, ok := a.values[name]
	return v, ok
}

func (a *aggregator) Names() []string {
	seen := make(map[string]struct{}, len(a.values)+len(a.consumers))
	for k := range a.values {
		seen[k] = struct{}{}
	}
	for k := range a.consumers {
		seen[k] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (a *aggregator) ConsumerCount() int {
	return len(a.all)
}

func (a *aggregator) Update() {
	for _, c := range a.all {
		c.Update()
	}
}
