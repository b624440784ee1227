//go:build unit

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(nil)
	assert.Equal(t, defaultTable, s.table)
}

func TestNew_WithTable(t *testing.T) {
	t.Parallel()

	s := New(nil, WithTable("custom_checkpoints"))
	assert.Equal(t, "custom_checkpoints", s.table)

	s = New(nil, WithTable(""))
	assert.Equal(t, defaultTable, s.table, "empty table name keeps the default")
}
