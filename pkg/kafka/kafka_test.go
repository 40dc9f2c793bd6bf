package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	type event struct {
		Type  string `json:"type"`
		Query string `json:"query"`
	}
	got, err := DecodeJSON[event]([]byte(`{"type":"parse","query":"foo bar"}`))
	require.NoError(t, err)
	assert.Equal(t, event{Type: "parse", Query: "foo bar"}, got)

	_, err = DecodeJSON[event]([]byte(`{"type":`))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestEncodeMessages(t *testing.T) {
	msgs, err := encodeMessages([]Event{
		{Key: "parse", Value: map[string]int{"query_length": 3}},
		{Key: "query_too_long", Value: "x"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("parse"), msgs[0].Key)
	assert.JSONEq(t, `{"query_length":3}`, string(msgs[0].Value))
	assert.Equal(t, `"x"`, string(msgs[1].Value))

	_, err = encodeMessages([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestPingWithoutBrokers(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))
}
