package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FC2Observ/observ/internal/config"
	"github.com/FC2Observ/observ/pkg/streaming"
)

type mockSink struct {
	name    string
	initErr error
	sendErr error
	sent    []streaming.Event
	closed  bool
}

func (m *mockSink) Name() string { return m.name }
func (m *mockSink) Init() error  { return m.initErr }
func (m *mockSink) Close() error { m.closed = true; return nil }
func (m *mockSink) Send(e streaming.Event) error {
	m.sent = append(m.sent, e)
	return m.sendErr
}

func TestMultiSendFansOut(t *testing.T) {
	a := &mockSink{name: "a"}
	b := &mockSink{name: "b"}
	m := NewMulti(nil, a, b)
	require.NoError(t, m.Init())

	e := streaming.Event{Type: streaming.TypeBomb}
	require.NoError(t, m.Send(e))
	assert.Equal(t, []streaming.Event{e}, a.sent)
	assert.Equal(t, []streaming.Event{e}, b.sent)
}

func TestMultiFailingSinkDoesNotBlockOthers(t *testing.T) {
	a := &mockSink{name: "a", sendErr: errors.New("broken pipe")}
	b := &mockSink{name: "b"}
	m := NewMulti(nil, a, b)

	err := m.Send(streaming.Event{Type: streaming.TypeSmokes})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Len(t, b.sent, 1)
}

func TestMultiInitDropsFailingSinks(t *testing.T) {
	bad := &mockSink{name: "bad", initErr: errors.New("refused")}
	good := &mockSink{name: "good"}
	m := NewMulti(nil, bad, good)

	err := m.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: refused")
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Send(streaming.Event{Type: streaming.TypeMap}))
	assert.Empty(t, bad.sent)
	assert.Len(t, good.sent, 1)
}

func TestMultiClose(t *testing.T) {
	a := &mockSink{name: "a"}
	m := NewMulti(nil, a)
	require.NoError(t, m.Close())
	assert.True(t, a.closed)
}

func TestNewSinks(t *testing.T) {
	var buf bytes.Buffer

	m := NewSinks(config.OutputConfig{Stdout: true}, &buf, nil)
	assert.Equal(t, 1, m.Len())
	require.NoError(t, m.Init())
	require.NoError(t, m.Send(streaming.Event{Type: streaming.TypeFlashbangs, Data: []any{}}))
	assert.Equal(t, `{"type":"flashbangs","data":[]}`+"\n", buf.String())

	m = NewSinks(config.OutputConfig{
		Websocket: config.WebsocketConfig{URL: "ws://localhost:1"},
		MQTT:      config.MQTTConfig{Broker: "tcp://localhost:1"},
	}, &buf, nil)
	assert.Equal(t, 2, m.Len())

	assert.Equal(t, 0, NewSinks(config.OutputConfig{}, &buf, nil).Len())
}

func TestSinkName(t *testing.T) {
	assert.Equal(t, "x", sinkName(&mockSink{name: "x"}))
}
