package reedsolomon

import (
	"bytes"
	"errors"
	"os"

	pkgerr "github.com/pkg/errors"
)

// CodingLoop is one strategy for the matrix/shards product that drives
// encoding, verification and reconstruction:
//
//	outputs[o][y] = XOR over i of mulTbl[matrixRows[o][i]][inputs[i][y]]
//
// for o in [0, len(outputs)), y in [offset, offset+byteCount).
//
// The three loops (byte, input, output) can be nested in six orders, and
// the per-byte multiply can hit the full product table or the log/exp
// tables, giving twelve variants. All are observationally equivalent on
// valid arguments; they exist so callers can benchmark and pick the
// fastest on the target CPU. A loop only reads inputs and only writes
// the designated byte range of the designated outputs.
type CodingLoop interface {
	// CodeSomeShards overwrites outputs with the product.
	CodeSomeShards(matrixRows, inputs, outputs [][]byte, offset, byteCount int)

	// CheckSomeShards recomputes the product and compares it with
	// toCheck, stopping at the first mismatch.
	CheckSomeShards(matrixRows, inputs, toCheck [][]byte, offset, byteCount int) bool

	// CheckSomeShardsWithBuffer is CheckSomeShards with caller-provided
	// scratch of at least offset+byteCount bytes. Variants without a
	// faster buffered path ignore the scratch.
	CheckSomeShardsWithBuffer(matrixRows, inputs, toCheck [][]byte, offset, byteCount int, tempBuffer []byte) bool

	// String returns the variant's selector name.
	String() string
}

// AllCodingLoops lists every variant, ordered by loop nesting
// (byte/input/output from outermost to innermost), table back-end first.
var AllCodingLoops = []CodingLoop{
	byteInputOutputTable{},
	byteInputOutputExp{},
	byteOutputInputTable{},
	byteOutputInputExp{},
	inputByteOutputTable{},
	inputByteOutputExp{},
	inputOutputByteTable{},
	inputOutputByteExp{},
	outputByteInputTable{},
	outputByteInputExp{},
	outputInputByteTable{},
	outputInputByteExp{},
}

var ErrUnknownCodingLoop = errors.New("reedsolomon: unknown coding loop")

// LoopByName returns the variant with the given selector name.
func LoopByName(name string) (CodingLoop, error) {
	for _, loop := range AllCodingLoops {
		if loop.String() == name {
			return loop, nil
		}
	}
	return nil, pkgerr.Wrapf(ErrUnknownCodingLoop, "%q", name)
}

// CodingLoopEnv forces the default coding loop when set to a known
// selector name. Benchmarking aid, not needed in normal use.
const CodingLoopEnv = "RS_CODING_LOOP"

func defaultCodingLoop() CodingLoop {
	if name := os.Getenv(CodingLoopEnv); name != "" {
		if loop, err := LoopByName(name); err == nil {
			return loop
		}
	}
	return inputOutputByteTable{}
}

// checkShardsBase is the scratch-free verification shared by all variants:
// recompute each expected byte and compare with the stored one.
func checkShardsBase(matrixRows, inputs, toCheck [][]byte, offset, byteCount int) bool {
	for o := range toCheck {
		row := matrixRows[o]
		for y := offset; y < offset+byteCount; y++ {
			var value byte
			for i := range inputs {
				value ^= mulTbl[row[i]][inputs[i][y]]
			}
			if toCheck[o][y] != value {
				return false
			}
		}
	}
	return true
}

// loopBase supplies the shared verification paths. Variants embed it and
// may shadow CheckSomeShardsWithBuffer with a faster implementation.
type loopBase struct{}

func (loopBase) CheckSomeShards(matrixRows, inputs, toCheck [][]byte, offset, byteCount int) bool {
	return checkShardsBase(matrixRows, inputs, toCheck, offset, byteCount)
}

func (loopBase) CheckSomeShardsWithBuffer(matrixRows, inputs, toCheck [][]byte, offset, byteCount int, _ []byte) bool {
	return checkShardsBase(matrixRows, inputs, toCheck, offset, byteCount)
}

// checkShardsBuffered writes each expected row into tempBuffer via code,
// then compares the window in one shot.
func checkShardsBuffered(code func(row []byte, inputs [][]byte, out []byte, offset, byteCount int),
	matrixRows, inputs, toCheck [][]byte, offset, byteCount int, tempBuffer []byte) bool {
	for o := range toCheck {
		code(matrixRows[o], inputs, tempBuffer, offset, byteCount)
		if !bytes.Equal(tempBuffer[offset:offset+byteCount], toCheck[o][offset:offset+byteCount]) {
			return false
		}
	}
	return true
}
