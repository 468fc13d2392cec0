package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncode(t *testing.T) {
	msg, err := Encode(Event{Key: "run-1", Value: payload{Name: "stars", Count: 3}})
	require.NoError(t, err)
	assert.Equal(t, []byte("run-1"), msg.Key)
	assert.JSONEq(t, `{"name":"stars","count":3}`, string(msg.Value))

	_, err = Encode(Event{Key: "bad", Value: make(chan int)})
	assert.Error(t, err)
}

func TestEncode_Headers(t *testing.T) {
	msg, err := Encode(Event{
		Key:     "run-2",
		Value:   payload{},
		Headers: map[string]string{"status": "ok", "run_id": "abc"},
	})
	require.NoError(t, err)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "content-type", msg.Headers[0].Key)
	assert.Equal(t, "application/json", string(msg.Headers[0].Value))
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, "abc", string(msg.Headers[1].Value))
	assert.Equal(t, "status", msg.Headers[2].Key)
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[payload]([]byte(`{"name":"a","count":2}`))
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "a", Count: 2}, got)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}

func TestPing_NoBrokers(t *testing.T) {
	assert.ErrorContains(t, Ping(context.Background(), nil), "no kafka brokers")
}
