// Package tbmock provides a mock testing.TB for checking that test helpers fail fast.
package tbmock

import (
	"fmt"
	"testing"
)

// FatalSentinel is panicked by MockTB in place of runtime.Goexit so a helper
// under test stops where a real test would. ExpectFatal recovers it.
type FatalSentinel struct{ Msg string }

// MockTB delegates to a real testing.TB and intercepts the fatal and skip
// methods.
type MockTB struct {
	testing.TB
	failed   bool
	FatalMsg string
}

// NewMockTB wraps t.
func NewMockTB(t testing.TB) *MockTB {
	return &MockTB{TB: t}
}

// Failed reports whether a fatal or skip method was called.
func (m *MockTB) Failed() bool { return m.failed }

func (m *MockTB) halt(msg string) {
	m.failed = true
	m.FatalMsg = msg
	panic(FatalSentinel{msg})
}

func (m *MockTB) Helper()                           {}
func (m *MockTB) Errorf(format string, args ...any) {}
func (m *MockTB) Cleanup(fn func())                 {}

func (m *MockTB) Fatal(args ...any)                 { m.halt(fmt.Sprint(args...)) }
func (m *MockTB) Fatalf(format string, args ...any) { m.halt(fmt.Sprintf(format, args...)) }
func (m *MockTB) FailNow()                          { m.halt("") }
func (m *MockTB) Skip(args ...any)                  { m.halt(fmt.Sprint(args...)) }
func (m *MockTB) Skipf(format string, args ...any)  { m.halt(fmt.Sprintf(format, args...)) }
func (m *MockTB) SkipNow()                          { m.halt("") }

// ExpectFatal runs fn and swallows a MockTB halt. Other panics propagate.
func ExpectFatal(m *MockTB, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(FatalSentinel); !ok {
				panic(r)
			}
		}
	}()
	fn()
}
