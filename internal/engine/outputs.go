package engine

import "cadence.lopezb.com/internal/idle"

// Output is a configured audio output.
type Output struct {
	ID      int
	Name    string
	Enabled bool
}

func (e *Engine) Outputs() []Output {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Output(nil), e.outputs...)
}

// SetOutput enables or disables the output with the given id.
func (e *Engine) SetOutput(id int, enabled bool) error {
	return e.update(func() (idle.Mask, error) {
		if id < 0 || id >= len(e.outputs) {
			return 0, ErrNoSuchOutput
		}
		if e.outputs[id].Enabled == enabled {
			return 0, nil
		}
		e.outputs[id].Enabled = enabled
		return idle.Output, nil
	})
}
