package audio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader returns one key sequence per Read, like a raw terminal.
type chunkReader struct {
	keys [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.keys) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.keys[0])
	r.keys = r.keys[1:]
	return n, nil
}

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		in   []byte
		want pickAction
	}{
		{[]byte{'\r'}, pickConfirm},
		{[]byte{3}, pickCancel},
		{[]byte{'j'}, pickDown},
		{[]byte{'k'}, pickUp},
		{[]byte{0x1b, '[', 'A'}, pickUp},
		{[]byte{0x1b, '[', 'B'}, pickDown},
		{[]byte{0x1b, '[', 'C'}, pickNone},
		{[]byte{'x'}, pickNone},
		{nil, pickNone},
	}
	for _, tt := range tests {
		if got := decodeKey(tt.in); got != tt.want {
			t.Errorf("decodeKey(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPick(t *testing.T) {
	devices := []DeviceInfo{{Name: "Built-in"}, {Name: "USB Mic"}, {Name: "AirPods"}}
	down := []byte{0x1b, '[', 'B'}
	up := []byte{0x1b, '[', 'A'}

	tests := []struct {
		name string
		keys [][]byte
		want string
	}{
		{"first", [][]byte{{'\r'}}, "Built-in"},
		{"down", [][]byte{down, {'\r'}}, "USB Mic"},
		{"clamped bottom", [][]byte{down, down, down, down, {'\r'}}, "AirPods"},
		{"clamped top", [][]byte{up, {'k'}, {'\r'}}, "Built-in"},
		{"vim keys", [][]byte{{'j'}, {'j'}, {'k'}, {'\r'}}, "USB Mic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d, err := pick(&chunkReader{keys: tt.keys}, &out, devices)
			if err != nil {
				t.Fatal(err)
			}
			if d.Name != tt.want {
				t.Errorf("picked %q, want %q", d.Name, tt.want)
			}
		})
	}
}

func TestPickCancelAndEOF(t *testing.T) {
	devices := []DeviceInfo{{Name: "a"}, {Name: "b"}}
	var out bytes.Buffer
	if _, err := pick(&chunkReader{keys: [][]byte{{3}}}, &out, devices); !errors.Is(err, ErrCanceled) {
		t.Errorf("ctrl+c: err = %v, want ErrCanceled", err)
	}
	if _, err := pick(&chunkReader{}, &out, devices); err == nil {
		t.Error("EOF: expected error")
	}
}

func TestRenderPickerMarksBluetooth(t *testing.T) {
	var out bytes.Buffer
	renderPicker(&out, []DeviceInfo{{Name: "AirPods Pro"}, {Name: "Built-in"}}, 1)
	s := out.String()
	if !strings.Contains(s, "AirPods Pro \x1b[33m[low quality]") {
		t.Errorf("bluetooth device not tagged:\n%q", s)
	}
	if !strings.Contains(s, "▶ Built-in") {
		t.Errorf("cursor not on second device:\n%q", s)
	}
}
