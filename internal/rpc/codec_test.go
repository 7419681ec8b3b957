package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestJSONCodecRegisteredUnderContentSubtype(t *testing.T) {
	codec := encoding.GetCodec(codecName)
	require.NotNil(t, codec)
	assert.Equal(t, "json", codec.Name())
}

func TestJSONCodecRoundTrips(t *testing.T) {
	codec := jsonCodec{}

	in := RequestRequest{Method: "GET", URI: "/orders", Body: "payload"}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out RequestRequest
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
