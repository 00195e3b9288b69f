package training

import (
	"github.com/pkg/errors"

	"github.com/wyhwong/tao-classifier/model"
	"github.com/wyhwong/tao-classifier/tensor"
)

// Snapshot is an immutable point-in-time copy of a model's parameters keyed
// by name. Snapshots never alias live training state, so continued training
// cannot invalidate them.
type Snapshot struct {
	names  []string
	params map[string]*tensor.Tensor
}

// TakeSnapshot deep-copies every named parameter of the model.
func TakeSnapshot(m model.Module) (*Snapshot, error) {
	named := m.NamedParameters()
	s := &Snapshot{
		names:  make([]string, 0, len(named)),
		params: make(map[string]*tensor.Tensor, len(named)),
	}

	for _, np := range named {
		clone, err := np.Param.Clone()
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot of parameter %s", np.Name)
		}
		s.names = append(s.names, np.Name)
		s.params[np.Name] = clone
	}
	return s, nil
}

// Names returns the parameter names in model order.
func (s *Snapshot) Names() []string {
	return append([]string(nil), s.names...)
}

// Get returns the snapshotted tensor for a parameter name, or nil.
func (s *Snapshot) Get(name string) *tensor.Tensor {
	return s.params[name]
}

// Restore copies the snapshotted values back into the model's parameters.
// Every snapshot entry must match a model parameter of the same shape.
func (s *Snapshot) Restore(m model.Module) error {
	live := make(map[string]*tensor.Tensor)
	for _, np := range m.NamedParameters() {
		live[np.Name] = np.Param
	}

	for _, name := range s.names {
		param, ok := live[name]
		if !ok {
			return errors.Errorf("model has no parameter %s", name)
		}
		saved := s.params[name]
		if param.NumElems != saved.NumElems {
			return errors.Errorf("parameter %s size mismatch: %d vs %d", name, param.NumElems, saved.NumElems)
		}

		data, err := saved.GetFloat32Data()
		if err != nil {
			return errors.Wrapf(err, "restore of parameter %s", name)
		}
		dst, err := param.GetFloat32Data()
		if err != nil {
			return errors.Wrapf(err, "restore of parameter %s", name)
		}
		copy(dst, data)
	}
	return nil
}

// Equal reports whether two snapshots hold identical parameters.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if other == nil || len(s.names) != len(other.names) {
		return false
	}
	for _, name := range s.names {
		a, b := s.params[name], other.params[name]
		if b == nil || !a.Equal(b) {
			return false
		}
	}
	return true
}
