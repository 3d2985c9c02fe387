//go:build gui

package gui

import "testing"

func TestDotColor(t *testing.T) {
	if dotColor("Listening...") != recColor {
		t.Error("listening should be red")
	}
	if dotColor("Transcribing...\n●●") != busyColor {
		t.Error("transcribing should be amber")
	}
}
