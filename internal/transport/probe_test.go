package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialAddr(t *testing.T) {
	cases := map[string]string{
		"wss://relay.example.com":      "relay.example.com:443",
		"wss://relay.example.com:7777": "relay.example.com:7777",
		"ws://relay.example.com":       "relay.example.com:80",
		"https://mint.example.com":     "mint.example.com:443",
		"http://mint.example.com:3338": "mint.example.com:3338",
		"127.0.0.1:4444":               "127.0.0.1:4444",
		"garbage without host or port": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, dialAddr(in), "endpoint %q", in)
	}
}

func TestDialProbe_Online(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	probe := NewDialProbe([]string{ln.Addr().String()}, time.Second)
	assert.True(t, probe.Online())
}

func TestDialProbe_Offline(t *testing.T) {
	// Reserved TEST-NET address, nothing listens there.
	probe := NewDialProbe([]string{"192.0.2.1:9"}, 100*time.Millisecond)
	assert.False(t, probe.Online())
}

func TestStaticContacts(t *testing.T) {
	dir := StaticContacts{"alice": "ab12", "ghost": ""}
	ctx := context.Background()

	pk, ok, err := dir.PubKey(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ab12", pk)

	_, ok, err = dir.PubKey(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = dir.PubKey(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}
