// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"crypto/sha256"
	"fmt"

	"github.com/lunabft/narwhal-core/utils/wrappers"
)

// TransactionsPayload is the generic wrapper carried in a non-empty
// block's synthetic Transaction digest field: the raw bytes of every
// transaction the block's certificates contributed, so the downstream
// parser can re-derive individual transaction hashes without this core
// needing to understand any chain-specific transaction schema.
type TransactionsPayload struct {
	Raw [][]byte
}

// Encode packs the payload deterministically: a count followed by each
// transaction's length-prefixed bytes, in the same order they were
// appended (i.e. the block's already-deterministic sort order).
func (p TransactionsPayload) Encode() []byte {
	packer := wrappers.NewPacker(estimateSize(p.Raw))
	packer.PackInt(uint32(len(p.Raw)))
	for _, tx := range p.Raw {
		packer.PackInt(uint32(len(tx)))
		packer.PackBytes(tx)
	}
	return packer.Bytes
}

func estimateSize(raw [][]byte) int {
	size := 4
	for _, tx := range raw {
		size += 4 + len(tx)
	}
	return size
}

// DecodeTransactionsPayload unpacks bytes produced by Encode.
func DecodeTransactionsPayload(data []byte) (TransactionsPayload, error) {
	var out TransactionsPayload
	if len(data) < 4 {
		return out, fmt.Errorf("transactions payload: truncated count")
	}
	count := be32(data)
	data = data[4:]
	out.Raw = make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 4 {
			return out, fmt.Errorf("transactions payload: truncated length at entry %d", i)
		}
		n := be32(data)
		data = data[4:]
		if uint32(len(data)) < n {
			return out, fmt.Errorf("transactions payload: truncated body at entry %d", i)
		}
		out.Raw = append(out.Raw, data[:n])
		data = data[n:]
	}
	return out, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// TransactionHash hashes one raw transaction payload. The original
// source derives its hash from a bespoke, chain-specific protobuf
// struct; that schema is out of scope here, so this core hashes the raw
// transaction bytes directly.
func TransactionHash(payload []byte) [32]byte {
	return sha256.Sum256(payload)
}
