// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Camoto-Go contributors
// Source: github.com/camoto-go/gamearchive

package gafilter

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXorBloodIsInvolutive(t *testing.T) {
	plain := []byte("The quick brown fox jumps over the lazy dog")
	params := Params{"key": byte(0x5A)}

	enc, err := EncodeNamed("xor-blood", bytes.NewReader(plain), params, nil)
	require.NoError(t, err)
	encoded, err := io.ReadAll(enc)
	require.NoError(t, err)
	require.NotEqual(t, plain, encoded)

	dec, err := DecodeNamed("xor-blood", bytes.NewReader(encoded), params)
	require.NoError(t, err)
	decoded, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, plain, decoded)
}

func TestLzwBashRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("MONSTERBASH"), 50)

	var sizeChanges []int64
	enc, err := EncodeNamed("lzw-bash", bytes.NewReader(plain), nil, func(n int64) error {
		sizeChanges = append(sizeChanges, n)
		return nil
	})
	require.NoError(t, err)
	encoded, err := io.ReadAll(enc)
	require.NoError(t, err)
	require.Len(t, sizeChanges, 1)
	require.Equal(t, int64(len(encoded)), sizeChanges[0])

	dec, err := DecodeNamed("lzw-bash", bytes.NewReader(encoded), nil)
	require.NoError(t, err)
	decoded, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, plain, decoded)
}

func TestLzwEpfsRoundTrip(t *testing.T) {
	plain := []byte("EAST POINT SOFTWARE EPFS ARCHIVE PAYLOAD")

	enc, err := EncodeNamed("lzw-epfs", bytes.NewReader(plain), nil, nil)
	require.NoError(t, err)
	encoded, err := io.ReadAll(enc)
	require.NoError(t, err)

	dec, err := DecodeNamed("lzw-epfs", bytes.NewReader(encoded), nil)
	require.NoError(t, err)
	decoded, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, plain, decoded)
}

func TestDecodeNamedUnknownFilter(t *testing.T) {
	_, err := DecodeNamed("does-not-exist", bytes.NewReader(nil), nil)
	require.ErrorIs(t, err, ErrUnknownFilter)
}

func TestRegisterReplacesExisting(t *testing.T) {
	calls := 0
	Register(stubCodec{name: "stub-test", onDecode: func() { calls++ }})
	Register(stubCodec{name: "stub-test", onDecode: func() { calls += 10 }})

	_, err := DecodeNamed("stub-test", bytes.NewReader(nil), nil)
	require.NoError(t, err)
	require.Equal(t, 10, calls)
}

type stubCodec struct {
	name     string
	onDecode func()
}

func (s stubCodec) Name() string { return s.name }
func (s stubCodec) Decode(r io.Reader, _ Params) (io.Reader, error) {
	s.onDecode()
	return r, nil
}
func (s stubCodec) Encode(r io.Reader, _ Params, _ SizeChangeFunc) (io.Reader, error) {
	return r, nil
}
