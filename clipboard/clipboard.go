package clipboard

import cb "github.com/atotto/clipboard"

func Get() (string, error) {
	return cb.ReadAll()
}

func Set(text string) error {
	return cb.WriteAll(text)
}

// System is the OS clipboard plus the platform paste keystroke.
type System struct{}

func (System) Get() (string, error) { return Get() }
func (System) Set(text string) error { return Set(text) }
func (System) SendPaste() error      { return Paste() }
