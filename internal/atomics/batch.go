/*
 *
 * Copyright 2026 The shmrt Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package atomics

import "fmt"

// OpCode identifies one batched atomic operation.
type OpCode int

const (
	OpLoad32 OpCode = iota
	OpStore32
	OpAdd32
	OpSub32
	OpAnd32
	OpOr32
	OpXor32
	OpExchange32
	OpCompareExchange32
	OpLoad64
	OpStore64
	OpAdd64
	OpSub64
	OpAnd64
	OpOr64
	OpXor64
	OpExchange64
	OpCompareExchange64
)

// Op is a single operation within a batch. Operand carries the stored value,
// delta, mask, or (for compare-exchange) the expected value; Operand2 carries
// the desired value for compare-exchange and is ignored otherwise.
type Op struct {
	Code     OpCode
	Offset   uint32
	Operand  int64
	Operand2 int64
}

// Batch collects atomic operations so they can be issued as one call,
// amortizing the per-operation crossing overhead. Batching changes only the
// issue cost: each operation in the batch remains individually atomic, and
// the batch as a whole is not a transaction.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Len returns the number of queued operations.
func (b *Batch) Len() int { return len(b.ops) }

// Append adds an operation to the batch.
func (b *Batch) Append(op Op) *Batch {
	b.ops = append(b.ops, op)
	return b
}

// Load32 queues an atomic 32-bit load.
func (b *Batch) Load32(offset uint32) *Batch {
	return b.Append(Op{Code: OpLoad32, Offset: offset})
}

// Store32 queues an atomic 32-bit store.
func (b *Batch) Store32(offset uint32, v int32) *Batch {
	return b.Append(Op{Code: OpStore32, Offset: offset, Operand: int64(v)})
}

// Add32 queues an atomic 32-bit add.
func (b *Batch) Add32(offset uint32, delta int32) *Batch {
	return b.Append(Op{Code: OpAdd32, Offset: offset, Operand: int64(delta)})
}

// CompareExchange32 queues an atomic 32-bit compare-exchange.
func (b *Batch) CompareExchange32(offset uint32, expected, desired int32) *Batch {
	return b.Append(Op{Code: OpCompareExchange32, Offset: offset, Operand: int64(expected), Operand2: int64(desired)})
}

// Load64 queues an atomic 64-bit load.
func (b *Batch) Load64(offset uint32) *Batch {
	return b.Append(Op{Code: OpLoad64, Offset: offset})
}

// Store64 queues an atomic 64-bit store.
func (b *Batch) Store64(offset uint32, v int64) *Batch {
	return b.Append(Op{Code: OpStore64, Offset: offset, Operand: v})
}

// Add64 queues an atomic 64-bit add.
func (b *Batch) Add64(offset uint32, delta int64) *Batch {
	return b.Append(Op{Code: OpAdd64, Offset: offset, Operand: delta})
}

// RunBatch executes the batch in submission order and returns one result per
// operation: the loaded value for loads, the prior value for read-modify-
// write operations, and zero for stores. The first failing operation aborts
// the batch; operations before it have already taken effect.
func (a *Atomics) RunBatch(b *Batch) ([]int64, error) {
	results := make([]int64, len(b.ops))
	for i, op := range b.ops {
		var (
			v32 int32
			v64 int64
			err error
		)
		switch op.Code {
		case OpLoad32:
			v32, err = a.Load32(op.Offset)
			v64 = int64(v32)
		case OpStore32:
			err = a.Store32(op.Offset, int32(op.Operand))
		case OpAdd32:
			v32, err = a.Add32(op.Offset, int32(op.Operand))
			v64 = int64(v32)
		case OpSub32:
			v32, err = a.Sub32(op.Offset, int32(op.Operand))
			v64 = int64(v32)
		case OpAnd32:
			v32, err = a.And32(op.Offset, int32(op.Operand))
			v64 = int64(v32)
		case OpOr32:
			v32, err = a.Or32(op.Offset, int32(op.Operand))
			v64 = int64(v32)
		case OpXor32:
			v32, err = a.Xor32(op.Offset, int32(op.Operand))
			v64 = int64(v32)
		case OpExchange32:
			v32, err = a.Exchange32(op.Offset, int32(op.Operand))
			v64 = int64(v32)
		case OpCompareExchange32:
			v32, err = a.CompareExchange32(op.Offset, int32(op.Operand), int32(op.Operand2))
			v64 = int64(v32)
		case OpLoad64:
			v64, err = a.Load64(op.Offset)
		case OpStore64:
			err = a.Store64(op.Offset, op.Operand)
		case OpAdd64:
			v64, err = a.Add64(op.Offset, op.Operand)
		case OpSub64:
			v64, err = a.Sub64(op.Offset, op.Operand)
		case OpAnd64:
			v64, err = a.And64(op.Offset, op.Operand)
		case OpOr64:
			v64, err = a.Or64(op.Offset, op.Operand)
		case OpXor64:
			v64, err = a.Xor64(op.Offset, op.Operand)
		case OpExchange64:
			v64, err = a.Exchange64(op.Offset, op.Operand)
		case OpCompareExchange64:
			v64, err = a.CompareExchange64(op.Offset, op.Operand, op.Operand2)
		default:
			return results[:i], &batchError{index: i, code: op.Code}
		}
		if err != nil {
			return results[:i], err
		}
		results[i] = v64
	}
	return results, nil
}

type batchError struct {
	index int
	code  OpCode
}

func (e *batchError) Error() string {
	return fmt.Sprintf("atomics: unknown op code %d at batch index %d", e.code, e.index)
}
