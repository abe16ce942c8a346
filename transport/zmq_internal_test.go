package transport

import (
	"testing"

	"github.com/pebbe/zmq4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZMQSocketTypeMapping(t *testing.T) {
	cases := []struct {
		in   SocketType
		want zmq4.Type
	}{
		{Pub, zmq4.PUB},
		{Sub, zmq4.SUB},
		{Push, zmq4.PUSH},
		{Pull, zmq4.PULL},
	}

	for _, tc := range cases {
		got, err := zmqSocketType(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestZMQSocketTypeMappingRejectsUnknown(t *testing.T) {
	_, err := zmqSocketType(SocketType(99))
	assert.Error(t, err)
}
