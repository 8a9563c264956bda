// Package logx is an allocation-free logger: it writes parts directly to
// the console (via the builtin print/println, same as TinyGo's runtime
// console) and optionally mirrors every line to a secondary UART ring.
// No fmt, no heap buffers — matches "no dynamic allocation after startup."
package logx

import (
	"pinio/x/shmring"
	"pinio/x/strconvx"
)

// Logger mirrors every message to the console and, optionally, a ring
// buffer backing a secondary UART (the diagnostic/debug link).
type Logger struct {
	mirror *shmring.Ring
}

// New returns a console-only logger; SetMirror attaches a secondary sink.
func New() *Logger { return &Logger{} }

// SetMirror attaches (or detaches, with nil) a ring to mirror output to.
func (l *Logger) SetMirror(r *shmring.Ring) { l.mirror = r }

func (l *Logger) writeString(s string) {
	if s == "" {
		return
	}
	print(s)
	if l.mirror != nil {
		_ = l.mirror.TryWriteFrom([]byte(s))
	}
}

func (l *Logger) writePart(v any) {
	switch x := v.(type) {
	case string:
		l.writeString(x)
	case []byte:
		l.writeString(string(x))
	case int:
		l.writeString(strconvx.Itoa(x))
	case int16:
		l.writeString(strconvx.Itoa(int(x)))
	case int32:
		l.writeString(strconvx.Itoa(int(x)))
	case int64:
		l.writeString(strconvx.FormatInt(x, 10))
	case uint:
		l.writeString(strconvx.Itoa(int(x)))
	case uint8:
		l.writeString(strconvx.Itoa(int(x)))
	case uint16:
		l.writeString(strconvx.Itoa(int(x)))
	case uint32:
		l.writeString(strconvx.FormatUint(uint64(x), 10))
	case bool:
		if x {
			l.writeString("true")
		} else {
			l.writeString("false")
		}
	default:
		l.writeString("?")
	}
}

// Print writes every part with no separator, exactly as given.
func (l *Logger) Print(parts ...any) {
	for i := range parts {
		l.writePart(parts[i])
	}
}

func (l *Logger) newline() {
	print("\n")
	if l.mirror != nil {
		_ = l.mirror.TryWriteFrom([]byte{'\n'})
	}
}

// Println writes every part then a trailing newline.
func (l *Logger) Println(parts ...any) {
	l.Print(parts...)
	l.newline()
}
