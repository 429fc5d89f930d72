// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabft/narwhal-core/utils/wrappers"
)

func TestErrsNilIsIgnored(t *testing.T) {
	var errs wrappers.Errs
	errs.Add(nil)
	require.False(t, errs.Errored())
	require.NoError(t, errs.Err())
}

func TestErrsSingleErrorReturnedAsIs(t *testing.T) {
	var errs wrappers.Errs
	single := errors.New("boom")
	errs.Add(single)
	require.True(t, errs.Errored())
	require.Equal(t, 1, errs.Len())
	require.Equal(t, single, errs.Err())
}

func TestErrsMultipleErrorsAreCombined(t *testing.T) {
	var errs wrappers.Errs
	errs.Add(errors.New("first"))
	errs.Add(errors.New("second"))
	require.Equal(t, 2, errs.Len())

	combined := errs.Err()
	require.Error(t, combined)
	require.Contains(t, combined.Error(), "first")
	require.Contains(t, combined.Error(), "second")
	require.Contains(t, combined.Error(), "2 errors occurred")
}

func TestPackerPacksIntAndLongBigEndian(t *testing.T) {
	p := wrappers.NewPacker(0)
	p.PackInt(0x01020304)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, p.Bytes)

	p2 := wrappers.NewPacker(0)
	p2.PackLong(0x0102030405060708)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, p2.Bytes)
}

func TestPackerStopsAfterError(t *testing.T) {
	p := wrappers.NewPacker(0)
	p.Err = errors.New("already failed")
	p.PackByte(0xFF)
	p.PackBytes([]byte{1, 2, 3})
	require.Empty(t, p.Bytes)
}
