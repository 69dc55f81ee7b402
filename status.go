package turbotimer

import "errors"

// Status is the outcome of an Unschedule call.
type Status int

const (
	// StatusOK means the task was prevented from running.
	StatusOK Status = iota
	// StatusBusy means the task is currently executing on the worker goroutine.
	StatusBusy
	// StatusStopped means the task does not exist: it already ran, was
	// already cancelled, or the id was never valid.
	StatusStopped
)

var statusNames = map[Status]string{
	StatusOK:      "ok",
	StatusBusy:    "kEBUSY",
	StatusStopped: "kESTOP",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "kEUNKNOWN"
}

// ErrInvalid is returned when a TaskID is structurally malformed (its slot
// index does not correspond to any slab block ever allocated).
var ErrInvalid = errors.New("kEINVAL: invalid argument")

// ErrNoMemory is the out-of-memory member of the error alphabet. No function
// in this package returns it: slab exhaustion makes Schedule return
// InvalidTaskID and log a warning instead.
var ErrNoMemory = errors.New("kENOMEM: out of memory")
