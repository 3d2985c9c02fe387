package hotkey

import "sync"

type physKey struct {
	key  Key
	code uint16
}

// Detector turns raw key events into level-triggered start/stop requests.
// The combo is active while every key in it has at least one physical key
// held. Only transitions of that boolean emit, so autorepeat and event
// reordering cannot produce duplicates.
type Detector struct {
	mu      sync.Mutex
	combo   Combo
	pressed map[physKey]bool
	active  bool
	emit    func(Request)
}

// NewDetector calls emit on every transition. emit runs with the detector
// locked and must not block.
func NewDetector(combo Combo, emit func(Request)) *Detector {
	return &Detector{
		combo:   combo,
		pressed: make(map[physKey]bool),
		emit:    emit,
	}
}

func (d *Detector) Handle(ev Event) {
	if !d.combo.Contains(ev.Key) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	pk := physKey{ev.Key, ev.Code}
	if ev.Down {
		d.pressed[pk] = true
	} else {
		delete(d.pressed, pk)
	}

	now := d.comboActive()
	if now == d.active {
		return
	}
	d.active = now
	if now {
		d.emit(StartRequested)
	} else {
		d.emit(StopRequested)
	}
}

func (d *Detector) comboActive() bool {
	for _, k := range d.combo {
		held := false
		for pk := range d.pressed {
			if pk.key == k {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}

func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Pressed returns a copy of the current KeyState by logical key.
func (d *Detector) Pressed() map[Key]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[Key]bool, len(d.combo))
	for _, k := range d.combo {
		out[k] = false
	}
	for pk := range d.pressed {
		out[pk.key] = true
	}
	return out
}
