package logging

import (
	"context"
	"sync/atomic"
)

// MirrorFunc receives every record emitted through Logger in addition to the
// primary zap core. Used to forward logs to an external sink such as OTLP.
type MirrorFunc func(ctx context.Context, level Level, msg string, args ...any)

type mirrorHolder struct {
	fn MirrorFunc
}

var mirror atomic.Pointer[mirrorHolder]

// SetMirror installs the process-wide log mirror. Passing nil removes it.
func SetMirror(fn MirrorFunc) {
	mirror.Store(&mirrorHolder{fn: fn})
}

func currentMirror() MirrorFunc {
	if holder := mirror.Load(); holder != nil {
		return holder.fn
	}
	return nil
}
