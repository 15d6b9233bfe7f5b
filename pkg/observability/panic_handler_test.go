package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "test operation")
		panic("kaboom")
	}()

	out := buf.String()
	assert.Contains(t, out, "PANIC recovered")
	assert.Contains(t, out, "kaboom")
	assert.True(t, strings.Contains(out, "test operation"))
}

func TestRecoverPanicWithCallback(t *testing.T) {
	called := false
	func() {
		defer RecoverPanicWithCallback(NopLogger(), "worker", func() { called = true })
		panic("boom")
	}()
	assert.True(t, called)

	called = false
	func() {
		defer RecoverPanicWithCallback(NopLogger(), "worker", func() { called = true })
	}()
	assert.False(t, called, "callback runs only after a panic")
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("bad"), "panic: bad")
}
