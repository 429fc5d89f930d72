// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/codec"
)

type sample struct {
	Name  string
	Count int
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{Name: "round", Count: 42}
	data, err := codec.Codec.Marshal(codec.CurrentVersion, in)
	require.NoError(t, err)

	var out sample
	version, err := codec.Codec.Unmarshal(data, &out)
	require.NoError(t, err)
	require.Equal(t, codec.CurrentVersion, version)
	require.Equal(t, in, out)
}

func TestMarshalRejectsUnsupportedVersion(t *testing.T) {
	_, err := codec.Codec.Marshal(codec.CurrentVersion+1, sample{})
	require.Error(t, err)
}

func TestUnmarshalPropagatesDecodeError(t *testing.T) {
	var out sample
	_, err := codec.Codec.Unmarshal([]byte("not json"), &out)
	require.Error(t, err)
}
