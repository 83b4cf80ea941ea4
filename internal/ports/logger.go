package ports

import (
	"strconv"
	"time"

	"github.com/bft-labs/atdrive/internal/domain"
)

// Logger provides structured logging capabilities.
// Implementations can wrap zerolog or any other logging library.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Action creates an "action" field.
func Action(a domain.Action) Field {
	return Field{Key: "action", Value: a.String()}
}

// Payload creates a "data" field with control characters escaped, so CRLF
// terminated modem traffic stays on one log line.
func Payload(b []byte) Field {
	q := strconv.Quote(string(b))
	return Field{Key: "data", Value: q[1 : len(q)-1]}
}
