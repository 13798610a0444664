package conn

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestConnectDisplacesPriorConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())

	first := m.Connect("s1", nil)
	second := m.Connect("s1", nil)
	assert.True(t, m.Active("s1"))

	// The displaced connection going away must not unregister its successor.
	m.Disconnect("s1", first)
	assert.True(t, m.Active("s1"))

	m.Disconnect("s1", second)
	assert.False(t, m.Active("s1"))
}

func TestSendWithoutConnectionDrops(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.False(t, m.Send("s1", []byte("lost")))
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(zerolog.Nop())

	c := m.Connect("s1", nil)
	assert.True(t, m.Active("s1"))
	assert.False(t, m.Active("s2"))

	m.Disconnect("s2", c)
	assert.True(t, m.Active("s1"))
}
