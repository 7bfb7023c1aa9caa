package rules

import (
	"fmt"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
)

// Registry is the ordered collection of assertion instances for one
// editing session. Duplicates are allowed; insertion order is display order
// and removal-index order. A Registry is not safe for concurrent mutation;
// each session owns its own.
type Registry struct {
	items []Instance
}

// NewRegistry creates a registry holding copies of instances
func NewRegistry(instances ...Instance) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(instances); err != nil {
		return nil, err
	}
	return r, nil
}

// Append adds an instance at the end. Only the instance's shape is checked
// (see Instance.Validate); template validity is checked lazily at
// display/serialization time.
func (r *Registry) Append(inst Instance) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	r.items = append(r.items, inst.Clone())
	return nil
}

// Remove deletes the instance at index and shifts later entries left
func (r *Registry) Remove(index int) (Instance, error) {
	if index < 0 || index >= len(r.items) {
		return Instance{}, dqerrors.IndexOutOfRange(index, len(r.items))
	}

	removed := r.items[index]
	items := make([]Instance, 0, len(r.items)-1)
	items = append(items, r.items[:index]...)
	items = append(items, r.items[index+1:]...)
	r.items = items
	return removed, nil
}

// At returns a copy of the instance at index
func (r *Registry) At(index int) (Instance, error) {
	if index < 0 || index >= len(r.items) {
		return Instance{}, dqerrors.IndexOutOfRange(index, len(r.items))
	}
	return r.items[index].Clone(), nil
}

// All returns a snapshot of every instance in order
func (r *Registry) All() []Instance {
	out := make([]Instance, len(r.items))
	for i, inst := range r.items {
		out[i] = inst.Clone()
	}
	return out
}

// Len returns the number of instances
func (r *Registry) Len() int {
	return len(r.items)
}

// Replace swaps the whole content. Nothing changes unless every instance is valid.
func (r *Registry) Replace(instances []Instance) error {
	items := make([]Instance, 0, len(instances))
	for i, inst := range instances {
		if err := inst.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i+1, err)
		}
		items = append(items, inst.Clone())
	}
	r.items = items
	return nil
}

// Clear removes every instance
func (r *Registry) Clear() {
	r.items = nil
}

// Clone returns an independent copy of the registry
func (r *Registry) Clone() *Registry {
	return &Registry{items: r.All()}
}
