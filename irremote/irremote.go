// Package irremote reads key events from an IR receiver exposed as a Linux
// input device.
package irremote

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// InputEvent is struct input_event on 64-bit Linux.
type InputEvent struct {
	Tv    syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

const eventSize = int(unsafe.Sizeof(InputEvent{}))

// Flags or'ed into a key code for held and released keys.
const (
	HoldFlag    = 0x10000
	ReleaseFlag = 0x20000
)

// Key codes sent by the supplied remote.
const (
	KeyStop     = 128
	KeyA        = 30
	KeyB        = 48
	KeyC        = 46
	KeyUp       = 103
	KeyDown     = 108
	KeyLeft     = 105
	KeyRight    = 106
	KeySelect   = 0x161
	KeyPageUp   = 104
	KeyPageDown = 109
)

const (
	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2
)

type Remote struct {
	fd     int
	path   string
	repeat bool
}

// Open opens the input device at path, e.g. /dev/input/event0.
func Open(path string) (*Remote, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("irremote: open %s: %w", path, err)
	}
	return &Remote{fd: fd, path: path}, nil
}

func (r *Remote) Close() error {
	return unix.Close(r.fd)
}

// Read sends key codes to ch until the device fails or is closed. A held
// key is sent with HoldFlag on every repeat and once more with ReleaseFlag
// when let go; a plain press is sent once.
func (r *Remote) Read(ch chan<- int32) error {
	buf := make([]byte, eventSize)
	for {
		n, err := unix.Read(r.fd, buf)
		if err != nil {
			return fmt.Errorf("irremote: read %s: %w", r.path, err)
		}
		if n < eventSize {
			continue
		}
		ev := (*InputEvent)(unsafe.Pointer(&buf[0]))
		if code, ok := r.decode(ev); ok {
			ch <- code
		}
	}
}

func (r *Remote) decode(ev *InputEvent) (int32, bool) {
	if ev.Type != unix.EV_KEY {
		return 0, false
	}
	switch ev.Value {
	case keyPress:
		return int32(ev.Code), true
	case keyRepeat:
		r.repeat = true
		return int32(ev.Code) | HoldFlag, true
	case keyRelease:
		if r.repeat {
			r.repeat = false
			return int32(ev.Code) | ReleaseFlag, true
		}
	}
	return 0, false
}
