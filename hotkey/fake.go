package hotkey

import "sync"

// FakeSource is a Source driven by tests and the stdin test mode.
type FakeSource struct {
	mu     sync.Mutex
	handle func(Event)
}

func NewFake() *FakeSource { return &FakeSource{} }

func (f *FakeSource) Start(handle func(Event)) error {
	f.mu.Lock()
	f.handle = handle
	f.mu.Unlock()
	return nil
}

func (f *FakeSource) Close() {
	f.mu.Lock()
	f.handle = nil
	f.mu.Unlock()
}

func (f *FakeSource) send(ev Event) {
	f.mu.Lock()
	h := f.handle
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *FakeSource) Press(k Key)   { f.send(Event{Key: k, Down: true}) }
func (f *FakeSource) Release(k Key) { f.send(Event{Key: k}) }

// PressCombo presses every key of c in order.
func (f *FakeSource) PressCombo(c Combo) {
	for _, k := range c {
		f.Press(k)
	}
}

// ReleaseCombo releases every key of c in reverse order.
func (f *FakeSource) ReleaseCombo(c Combo) {
	for i := len(c) - 1; i >= 0; i-- {
		f.Release(c[i])
	}
}
