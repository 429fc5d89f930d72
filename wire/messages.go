// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire hand-encodes the execution UDS protocol's protobuf
// payloads using the low-level google.golang.org/protobuf/encoding/
// protowire primitives — there is no .proto file or generated code here,
// just the wire format spec.md names: CommittedEpochData wrapping
// CommittedBlock wrapping Transaction.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Transaction is one entry in a CommittedBlock. For non-empty blocks the
// single synthetic Transaction's Digest carries the raw bytes of a
// Transactions wrapper (see TransactionsPayload) so the downstream
// parser can re-derive per-transaction hashes.
type Transaction struct {
	Digest   []byte
	WorkerID uint32
}

const (
	fieldTransactionDigest   = 1
	fieldTransactionWorkerID = 2
)

func (t Transaction) marshalAppend(dst []byte) []byte {
	if len(t.Digest) > 0 {
		dst = protowire.AppendTag(dst, fieldTransactionDigest, protowire.BytesType)
		dst = protowire.AppendBytes(dst, t.Digest)
	}
	if t.WorkerID != 0 {
		dst = protowire.AppendTag(dst, fieldTransactionWorkerID, protowire.VarintType)
		dst = protowire.AppendVarint(dst, uint64(t.WorkerID))
	}
	return dst
}

func unmarshalTransaction(data []byte) (Transaction, error) {
	var t Transaction
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return t, fmt.Errorf("transaction: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldTransactionDigest:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, fmt.Errorf("transaction: bad digest: %w", protowire.ParseError(n))
			}
			t.Digest = append([]byte(nil), v...)
			data = data[n:]
		case fieldTransactionWorkerID:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return t, fmt.Errorf("transaction: bad worker_id: %w", protowire.ParseError(n))
			}
			t.WorkerID = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return t, fmt.Errorf("transaction: bad field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return t, nil
}

// CommittedBlock is one deterministic, height-indexed block of the
// committed stream.
type CommittedBlock struct {
	Epoch        uint64
	Height       uint64
	Transactions []Transaction
}

const (
	fieldBlockEpoch        = 1
	fieldBlockHeight       = 2
	fieldBlockTransactions = 3
)

func (b CommittedBlock) marshalAppend(dst []byte) []byte {
	if b.Epoch != 0 {
		dst = protowire.AppendTag(dst, fieldBlockEpoch, protowire.VarintType)
		dst = protowire.AppendVarint(dst, b.Epoch)
	}
	if b.Height != 0 {
		dst = protowire.AppendTag(dst, fieldBlockHeight, protowire.VarintType)
		dst = protowire.AppendVarint(dst, b.Height)
	}
	for _, t := range b.Transactions {
		dst = protowire.AppendTag(dst, fieldBlockTransactions, protowire.BytesType)
		dst = protowire.AppendBytes(dst, t.marshalAppend(nil))
	}
	return dst
}

func unmarshalBlock(data []byte) (CommittedBlock, error) {
	var b CommittedBlock
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return b, fmt.Errorf("block: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldBlockEpoch:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, fmt.Errorf("block: bad epoch: %w", protowire.ParseError(n))
			}
			b.Epoch = v
			data = data[n:]
		case fieldBlockHeight:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return b, fmt.Errorf("block: bad height: %w", protowire.ParseError(n))
			}
			b.Height = v
			data = data[n:]
		case fieldBlockTransactions:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return b, fmt.Errorf("block: bad transaction: %w", protowire.ParseError(n))
			}
			tx, err := unmarshalTransaction(v)
			if err != nil {
				return b, err
			}
			b.Transactions = append(b.Transactions, tx)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return b, fmt.Errorf("block: bad field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return b, nil
}

// CommittedEpochData is the top-level message written to the execution
// UDS stream, one per frame.
type CommittedEpochData struct {
	Blocks []CommittedBlock
}

const fieldEpochDataBlocks = 1

// Marshal encodes e into protobuf wire format.
func (e CommittedEpochData) Marshal() []byte {
	var dst []byte
	for _, b := range e.Blocks {
		dst = protowire.AppendTag(dst, fieldEpochDataBlocks, protowire.BytesType)
		dst = protowire.AppendBytes(dst, b.marshalAppend(nil))
	}
	return dst
}

// Unmarshal decodes data into a CommittedEpochData.
func Unmarshal(data []byte) (CommittedEpochData, error) {
	var e CommittedEpochData
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return e, fmt.Errorf("epoch_data: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldEpochDataBlocks:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return e, fmt.Errorf("epoch_data: bad block: %w", protowire.ParseError(n))
			}
			blk, err := unmarshalBlock(v)
			if err != nil {
				return e, err
			}
			e.Blocks = append(e.Blocks, blk)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return e, fmt.Errorf("epoch_data: bad field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return e, nil
}
