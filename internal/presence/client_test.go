package presence

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/mpcpresence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDiscord answers the IPC protocol on one end of a net.Pipe.
type fakeDiscord struct {
	t *testing.T

	mu       sync.Mutex
	commands []message
	closed   bool
	// reject makes the handshake fail with a close frame
	reject bool
	// errorReply makes SET_ACTIVITY return an ERROR event
	errorReply bool
	// hangup closes the connection instead of replying to a command
	hangup bool
	// ping sends a ping before each reply
	ping bool
}

func (f *fakeDiscord) dialer(dials *int) DialFunc {
	return func(ctx context.Context) (net.Conn, error) {
		if dials != nil {
			*dials++
		}
		client, server := net.Pipe()
		go f.serve(server)
		return client, nil
	}
}

func (f *fakeDiscord) serve(conn net.Conn) {
	defer conn.Close()

	op, body, err := readFrame(conn)
	if err != nil || op != opHandshake {
		return
	}
	var hs handshake
	if err := json.Unmarshal(body, &hs); err != nil || hs.Version != 1 {
		return
	}
	if f.reject {
		_ = writeFrame(conn, opClose, errorData{Code: 4000, Message: "Invalid Client ID"})
		return
	}
	_ = writeFrame(conn, opFrame, message{Cmd: "DISPATCH", Evt: "READY"})

	for {
		op, body, err := readFrame(conn)
		if err != nil {
			return
		}
		if op == opClose {
			f.mu.Lock()
			f.closed = true
			f.mu.Unlock()
			return
		}

		var cmd message
		if err := json.Unmarshal(body, &cmd); err != nil {
			return
		}
		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		hangup, errorReply, ping := f.hangup, f.errorReply, f.ping
		f.mu.Unlock()

		if hangup {
			return
		}
		if ping {
			_ = writeFrame(conn, opPing, map[string]int{"n": 1})
			if op, _, err := readFrame(conn); err != nil || op != opPong {
				return
			}
		}
		// An unrelated event first; the client must skip it.
		_ = writeFrame(conn, opFrame, message{Evt: "ACTIVITY_JOIN", Nonce: "other"})
		if errorReply {
			data, _ := json.Marshal(errorData{Code: 4000, Message: "child \"activity\" fails"})
			_ = writeFrame(conn, opFrame, message{Cmd: cmd.Cmd, Evt: "ERROR", Nonce: cmd.Nonce, Data: data})
			continue
		}
		_ = writeFrame(conn, opFrame, message{Cmd: cmd.Cmd, Nonce: cmd.Nonce, Data: json.RawMessage(`{}`)})
	}
}

func (f *fakeDiscord) lastArgs(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.commands)
	raw, err := json.Marshal(f.commands[len(f.commands)-1].Args)
	require.NoError(t, err)
	var args map[string]any
	require.NoError(t, json.Unmarshal(raw, &args))
	return args
}

func newTestClient(f *fakeDiscord, dials *int, opts ...Option) *Client {
	opts = append([]Option{
		WithDialer(f.dialer(dials)),
		WithRetryDelay(time.Millisecond),
		WithIOTimeout(time.Second),
	}, opts...)
	return NewClient(zap.NewNop(), "123456789", opts...)
}

func TestClient_UpdateSendsActivity(t *testing.T) {
	f := &fakeDiscord{t: t}
	c := newTestClient(f, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	start := time.Unix(1700000000, 0)
	err := c.Update(context.Background(), domain.Activity{
		Details:    "Show Name S02E05",
		State:      "Playing | 00:45:00",
		LargeImage: "https://img.example.com/poster.jpg",
		LargeText:  "Show Name",
		SmallImage: "play_icon",
		SmallText:  "Playing",
		Start:      &start,
	})
	require.NoError(t, err)

	f.mu.Lock()
	cmd := f.commands[0]
	f.mu.Unlock()
	assert.Equal(t, "SET_ACTIVITY", cmd.Cmd)
	assert.NotEmpty(t, cmd.Nonce)

	args := f.lastArgs(t)
	activity := args["activity"].(map[string]any)
	assert.Equal(t, "Show Name S02E05", activity["details"])
	assert.Equal(t, "Playing | 00:45:00", activity["state"])
	assert.Equal(t, float64(1700000000), activity["timestamps"].(map[string]any)["start"])
	assets := activity["assets"].(map[string]any)
	assert.Equal(t, "https://img.example.com/poster.jpg", assets["large_image"])
	assert.Equal(t, "play_icon", assets["small_image"])
	assert.NotZero(t, args["pid"])
}

func TestClient_ClearSendsNullActivity(t *testing.T) {
	f := &fakeDiscord{t: t}
	c := newTestClient(f, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.Clear(context.Background()))

	args := f.lastArgs(t)
	v, present := args["activity"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestClient_PausedActivityHasNoTimestamps(t *testing.T) {
	f := &fakeDiscord{t: t}
	c := newTestClient(f, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.Update(context.Background(), domain.Activity{
		Details:    "Movie",
		State:      "Paused | 00:10:00 / 01:30:00",
		LargeImage: "mpc_logo_large",
		SmallImage: "pause_icon",
	}))

	activity := f.lastArgs(t)["activity"].(map[string]any)
	_, hasTimestamps := activity["timestamps"]
	assert.False(t, hasTimestamps)
}

func TestClient_ErrorEventIsReturned(t *testing.T) {
	f := &fakeDiscord{t: t, errorReply: true}
	dials := 0
	c := newTestClient(f, &dials)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	err := c.Update(context.Background(), domain.Activity{Details: "x"})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 4000, rpcErr.Code)

	// An ERROR reply keeps the connection.
	f.mu.Lock()
	f.errorReply = false
	f.mu.Unlock()
	require.NoError(t, c.Update(context.Background(), domain.Activity{Details: "xy"}))
	assert.Equal(t, 1, dials)
}

func TestClient_PingIsAnswered(t *testing.T) {
	f := &fakeDiscord{t: t, ping: true}
	c := newTestClient(f, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.NoError(t, c.Clear(context.Background()))
}

func TestClient_ReconnectsAfterBrokenConnection(t *testing.T) {
	f := &fakeDiscord{t: t, hangup: true}
	dials := 0
	c := newTestClient(f, &dials)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.Error(t, c.Clear(context.Background()))

	f.mu.Lock()
	f.hangup = false
	f.mu.Unlock()

	require.NoError(t, c.Clear(context.Background()))
	assert.Equal(t, 2, dials)
}

func TestClient_ConnectRetriesThenFails(t *testing.T) {
	attempts := 0
	c := NewClient(zap.NewNop(), "123",
		WithAttempts(3),
		WithRetryDelay(time.Millisecond),
		WithDialer(func(ctx context.Context) (net.Conn, error) {
			attempts++
			return nil, errors.New("no socket")
		}))

	err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 3, attempts)
}

func TestClient_HandshakeRejected(t *testing.T) {
	f := &fakeDiscord{t: t, reject: true}
	c := newTestClient(f, nil, WithAttempts(1))

	err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Contains(t, err.Error(), "Invalid Client ID")
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	f := &fakeDiscord{t: t}
	c := newTestClient(f, nil)
	require.NoError(t, c.Connect(context.Background()))

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	assert.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.closed
	}, time.Second, 10*time.Millisecond)
}

func TestFrameCodec(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		_ = writeFrame(client, opFrame, message{Cmd: "SET_ACTIVITY", Nonce: "n1"})
	}()

	op, body, err := readFrame(server)
	require.NoError(t, err)
	assert.Equal(t, opFrame, op)
	assert.JSONEq(t, `{"cmd":"SET_ACTIVITY","nonce":"n1"}`, string(body))
}

func TestPadText(t *testing.T) {
	assert.Equal(t, "", padText(""))
	assert.Equal(t, "a ", padText("a"))
	assert.Equal(t, "ab", padText("ab"))
}
