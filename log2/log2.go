// Package log2 is a small leveled logger over stdlib *log.Logger.
//   - level filtering, e.g. debug messages for a single component only
//   - safe concurrent change of log level
//   - all methods are no-op on nil *Log, so components may run without logger
//   - NewTest routes output into t.Logf for parallel tests
package log2

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"math"
	"os"
	"sync/atomic"
	"testing"
)

const (
	// type specified here helped against accidentally passing flags as level
	Lmicroseconds     int = log.Lmicroseconds
	Lshortfile        int = log.Lshortfile
	LStdFlags         int = log.Ltime | Lshortfile
	LInteractiveFlags int = log.Ltime | Lshortfile | Lmicroseconds
	LServiceFlags     int = Lshortfile
	LTestFlags        int = Lshortfile | Lmicroseconds
)

type Level int32

const (
	LError Level = iota
	LInfo
	LDebug
	LAll Level = math.MaxInt32
)

func (l Level) String() string {
	switch l {
	case LError:
		return "error"
	case LInfo:
		return "info"
	case LDebug:
		return "debug"
	case LAll:
		return "all"
	}
	return fmt.Sprintf("level(%d)", int32(l))
}

type FmtFunc func(format string, args ...interface{})
type ErrorFunc func(error)

type Log struct {
	l      *log.Logger
	level  *int32 // shared with Named children
	w      io.Writer
	fatalf FmtFunc
	errfun atomic.Value // ErrorFunc
}

func NewStderr(level Level) *Log { return NewWriter(os.Stderr, level) }
func NewWriter(w io.Writer, level Level) *Log {
	if w == ioutil.Discard {
		return nil
	}
	lv := int32(level)
	return &Log{
		l:     log.New(w, "", LStdFlags),
		level: &lv,
		w:     w,
	}
}

type FuncWriter struct{ FmtFunc }

func NewFunc(f FmtFunc, level Level) *Log { return NewWriter(FuncWriter{f}, level) }
func (self FuncWriter) Write(b []byte) (int, error) {
	self.FmtFunc("%s", b)
	return len(b), nil
}

func NewTest(t testing.TB, level Level) *Log {
	self := NewFunc(t.Logf, level)
	self.SetFlags(LTestFlags)
	self.fatalf = t.Fatalf
	return self
}

// Named returns child logger with prefix appended to parent prefix.
// Child shares level with parent, SetLevel on either affects both.
func (self *Log) Named(prefix string) *Log {
	if self == nil {
		return nil
	}
	child := &Log{
		l:      log.New(self.w, self.l.Prefix()+prefix, self.l.Flags()),
		level:  self.level,
		w:      self.w,
		fatalf: self.fatalf,
	}
	if f, ok := self.errfun.Load().(ErrorFunc); ok {
		child.errfun.Store(f)
	}
	return child
}

// Clone is like Named("") but child level is independent from parent.
func (self *Log) Clone(level Level) *Log {
	if self == nil {
		return nil
	}
	child := self.Named("")
	lv := int32(level)
	child.level = &lv
	return child
}

func (self *Log) SetLevel(l Level) {
	if self == nil {
		return
	}
	atomic.StoreInt32(self.level, int32(l))
}

func (self *Log) SetFlags(f int) {
	if self == nil {
		return
	}
	self.l.SetFlags(f)
}

func (self *Log) SetPrefix(prefix string) {
	if self == nil {
		return
	}
	self.l.SetPrefix(prefix)
}

// SetErrorFunc registers hook called for every Error/Errorf, regardless of level.
func (self *Log) SetErrorFunc(f ErrorFunc) {
	if self == nil {
		return
	}
	self.errfun.Store(f)
}

func (self *Log) Enabled(level Level) bool {
	if self == nil {
		return false
	}
	return atomic.LoadInt32(self.level) >= int32(level)
}

// depth 3 = caller of public method
func (self *Log) output(level Level, s string) {
	if self.Enabled(level) {
		_ = self.l.Output(3, s)
	}
}

func (self *Log) onError(e error) {
	if self == nil {
		return
	}
	if f, ok := self.errfun.Load().(ErrorFunc); ok && f != nil {
		f(e)
	}
}

func (self *Log) Printf(format string, args ...interface{}) {
	self.output(LInfo, fmt.Sprintf(format, args...))
}

func (self *Log) Error(args ...interface{}) {
	var e error
	if len(args) == 1 {
		e, _ = args[0].(error)
	}
	s := fmt.Sprint(args...)
	if e == nil {
		e = errors.New(s)
	}
	self.onError(e)
	self.output(LError, "error: "+s)
}
func (self *Log) Errorf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	self.onError(errors.New(s))
	self.output(LError, "error: "+s)
}
func (self *Log) Info(args ...interface{}) {
	self.output(LInfo, fmt.Sprint(args...))
}
func (self *Log) Infof(format string, args ...interface{}) {
	self.output(LInfo, fmt.Sprintf(format, args...))
}
func (self *Log) Debug(args ...interface{}) {
	self.output(LDebug, "debug: "+fmt.Sprint(args...))
}
func (self *Log) Debugf(format string, args ...interface{}) {
	self.output(LDebug, "debug: "+fmt.Sprintf(format, args...))
}

func (self *Log) Fatalf(format string, args ...interface{}) {
	if self != nil && self.fatalf != nil {
		self.fatalf(format, args...)
		return
	}
	s := fmt.Sprintf(format, args...)
	if self != nil {
		_ = self.l.Output(2, "fatal: "+s)
	} else {
		log.Output(2, "fatal: "+s)
	}
	os.Exit(1)
}
func (self *Log) Fatal(args ...interface{}) {
	self.Fatalf("%s", fmt.Sprint(args...))
}
