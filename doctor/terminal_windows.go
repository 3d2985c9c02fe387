//go:build windows

package doctor

const (
	rawHookHint = ""
	pasteHint   = ""
)

func resetTerminal() {}
