package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFields(t *testing.T) {
	f := fields([]interface{}{"host", "localhost", "attempt", 2})
	assert.Equal(t, logrus.Fields{"host": "localhost", "attempt": 2}, f)

	f = fields([]interface{}{"dangling"})
	assert.Equal(t, logrus.Fields{"!BADKEY": "dangling"}, f)

	f = fields([]interface{}{42, "answer"})
	assert.Equal(t, logrus.Fields{"42": "answer"}, f)
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer

	l := NewWithOptions(&buf, false)
	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l = NewWithOptions(&buf, true)
	l.With("package", "flask").Debug("shown", "version", "2.0.1")
	out := buf.String()
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "package=flask")
	assert.Contains(t, out, "version=2.0.1")
}
