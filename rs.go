// Copyright (c) 2017 Temple3x (temple3x@gmail.com)
//
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package reedsolomon implements systematic Reed-Solomon erasure codes
// over GF(2^8) (primitive polynomial x^8+x^4+x^3+x^2+1).
//
// Given dataNum data shards and parityNum parity shards of equal length,
// it computes the parity shards, verifies a full shard set, and rebuilds
// up to parityNum missing shards from any dataNum survivors. The data
// shards appear unchanged in the encoded output.
package reedsolomon

import (
	"errors"
	"sync"

	pkgerr "github.com/pkg/errors"
	"github.com/templexxx/cpu"
	xor "github.com/templexxx/xorsimd"
)

// RS is a Reed-Solomon codec for a fixed data/parity geometry.
//
// An RS is read-only after New returns: any number of goroutines may call
// EncodeParity, IsParityCorrect and DecodeMissing on the same instance
// without locking, as long as they work on disjoint output byte ranges.
type RS struct {
	DataNum   int // Number of data shards.
	ParityNum int // Number of parity shards.

	total int // DataNum + ParityNum.

	encMatrix  *matrix  // (total x DataNum) systematic encode matrix.
	parityRows [][]byte // The bottom ParityNum rows, aliased for the hot path.

	loop CodingLoop

	// Decoding with the same survivor set repeats in practice (a dead
	// node yields the same presence bitmap for every stripe), so the
	// inverted submatrix is cached when the key space is small.
	inverseCacheEnabled bool
	inverseCache        *sync.Map // uint64 bitmap -> *matrix
}

var (
	ErrInvalidShape  = errors.New("reedsolomon: data/parity shard numbers invalid")
	ErrTooManyShards = errors.New("reedsolomon: too many shards, data+parity must be <= 256")
)

// Option adjusts an RS during New.
type Option func(*RS)

// WithCodingLoop selects the coding-loop kernel. The default is
// inputOutputByteTable, or the variant named by RS_CODING_LOOP when set.
func WithCodingLoop(loop CodingLoop) Option {
	return func(r *RS) {
		r.loop = loop
	}
}

// WithInverseCache enables or disables caching of inverted decode
// submatrices. Enabling has no effect when the geometry's key space is
// too large to key by a presence bitmap.
func WithInverseCache(enabled bool) Option {
	return func(r *RS) {
		r.inverseCacheEnabled = enabled && r.total <= 64
		if r.inverseCacheEnabled && r.inverseCache == nil {
			r.inverseCache = new(sync.Map)
		}
	}
}

// New creates an RS for dataNum data shards and parityNum parity shards.
func New(dataNum, parityNum int, opts ...Option) (*RS, error) {
	if dataNum <= 0 || parityNum < 0 {
		return nil, pkgerr.Wrapf(ErrInvalidShape, "data: %d, parity: %d", dataNum, parityNum)
	}
	if dataNum+parityNum > 256 {
		return nil, pkgerr.Wrapf(ErrTooManyShards, "data: %d, parity: %d", dataNum, parityNum)
	}

	em, err := genEncMatrixVand(dataNum, parityNum)
	if err != nil {
		return nil, err
	}
	r := &RS{
		DataNum:   dataNum,
		ParityNum: parityNum,
		total:     dataNum + parityNum,
		encMatrix: em,
		loop:      defaultCodingLoop(),
	}
	r.parityRows = make([][]byte, parityNum)
	for i := 0; i < parityNum; i++ {
		r.parityRows[i] = em.row(dataNum + i)
	}

	// At most 35960 inverse matrices (when data=28, parity=4); beyond
	// that the cache could grow without bound.
	if r.DataNum < 29 && r.ParityNum < 5 {
		r.inverseCacheEnabled = true
		r.inverseCache = new(sync.Map)
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

var ErrInvalidArgument = errors.New("reedsolomon: invalid shards or window")

// checkShardsWindow validates the shard set and the (offset, byteCount)
// window. It runs before any coding work, so a failing call never writes.
func (r *RS) checkShardsWindow(shards [][]byte, offset, byteCount int) error {
	if len(shards) != r.total {
		return pkgerr.Wrapf(ErrInvalidArgument, "%d shards, expect %d", len(shards), r.total)
	}
	size := len(shards[0])
	for i := 1; i < len(shards); i++ {
		if len(shards[i]) != size {
			return pkgerr.Wrapf(ErrInvalidArgument, "shard %d has %d bytes, shard 0 has %d", i, len(shards[i]), size)
		}
	}
	if offset < 0 || byteCount < 0 {
		return pkgerr.Wrapf(ErrInvalidArgument, "offset: %d, byteCount: %d", offset, byteCount)
	}
	if offset+byteCount > size {
		return pkgerr.Wrapf(ErrInvalidArgument, "window [%d, %d) exceeds shard size %d", offset, offset+byteCount, size)
	}
	return nil
}

// EncodeParity computes the parity shards shards[DataNum:] from the data
// shards shards[:DataNum] over [offset, offset+byteCount). Bytes outside
// the window are left untouched.
func (r *RS) EncodeParity(shards [][]byte, offset, byteCount int) error {
	err := r.checkShardsWindow(shards, offset, byteCount)
	if err != nil {
		return err
	}
	if byteCount == 0 || r.ParityNum == 0 {
		return nil
	}
	r.codeSplit(r.parityRows, shards[:r.DataNum], shards[r.DataNum:], offset, byteCount)
	return nil
}

// codeSplit drives the kernel over cache-friendly pieces of the window
// (see getSplitSize). The pieces cover exactly [offset, offset+byteCount).
func (r *RS) codeSplit(matrixRows, inputs, outputs [][]byte, offset, byteCount int) {
	splitSize := getSplitSize(byteCount)
	start, end := offset, offset+byteCount
	for start < end {
		stop := start + splitSize
		if stop > end {
			stop = end
		}
		r.loop.CodeSomeShards(matrixRows, inputs, outputs, start, stop-start)
		start = stop
	}
}

// Half of L1 Data Cache Size is an empirical number:
// fits the cache without polluting too much for the next round.
func getSplitSize(n int) int {
	l1d := cpu.X86.Cache.L1D
	if l1d <= 0 { // Cannot detect cache size(-1) or CPU is not X86(0).
		l1d = 32 * 1024
	}
	if n < l1d/2 {
		return n
	}
	return l1d / 2
}

// IsParityCorrect reports whether the parity shards hold the product of
// the generator rows with the data shards over the window.
func (r *RS) IsParityCorrect(shards [][]byte, offset, byteCount int) (bool, error) {
	err := r.checkShardsWindow(shards, offset, byteCount)
	if err != nil {
		return false, err
	}
	if byteCount == 0 || r.ParityNum == 0 {
		return true, nil
	}
	return r.loop.CheckSomeShards(r.parityRows, shards[:r.DataNum], shards[r.DataNum:], offset, byteCount), nil
}

var ErrBufferTooSmall = errors.New("reedsolomon: temp buffer too small")

// IsParityCorrectWithBuffer is IsParityCorrect with caller-provided
// scratch, letting kernels with a buffered fast path compare whole rows
// instead of single bytes. tempBuffer needs at least offset+byteCount
// bytes and must not be shared across concurrent verifies.
func (r *RS) IsParityCorrectWithBuffer(shards [][]byte, offset, byteCount int, tempBuffer []byte) (bool, error) {
	err := r.checkShardsWindow(shards, offset, byteCount)
	if err != nil {
		return false, err
	}
	if len(tempBuffer) < offset+byteCount {
		return false, pkgerr.Wrapf(ErrBufferTooSmall, "%d bytes, need %d", len(tempBuffer), offset+byteCount)
	}
	if byteCount == 0 || r.ParityNum == 0 {
		return true, nil
	}
	return r.loop.CheckSomeShardsWithBuffer(r.parityRows, shards[:r.DataNum], shards[r.DataNum:], offset, byteCount, tempBuffer), nil
}

var ErrInsufficientShards = errors.New("reedsolomon: not enough shards present to reconstruct")

// DecodeMissing rebuilds the shards whose present flag is false, reading
// any DataNum present shards. Data shards are restored first from the
// inverted survivor submatrix, then missing parity is regenerated from
// the restored data; a mixed single solve is never attempted.
//
// With every shard present it returns immediately without writing. If a
// singular submatrix is detected, outputs have not been written yet;
// after other mid-decode failures the caller should discard the buffers.
func (r *RS) DecodeMissing(shards [][]byte, present []bool, offset, byteCount int) error {
	err := r.checkShardsWindow(shards, offset, byteCount)
	if err != nil {
		return err
	}
	if len(present) != r.total {
		return pkgerr.Wrapf(ErrInvalidArgument, "%d present flags, expect %d", len(present), r.total)
	}

	presentCnt := 0
	for _, p := range present {
		if p {
			presentCnt++
		}
	}
	if presentCnt == r.total {
		return nil
	}
	if presentCnt < r.DataNum {
		return pkgerr.Wrapf(ErrInsufficientShards, "%d present, need %d", presentCnt, r.DataNum)
	}

	// The first DataNum present shards, by ascending index, are the
	// inputs for data reconstruction.
	subShards := make([][]byte, r.DataNum)
	validIndices := make([]int, r.DataNum)
	j := 0
	for i := 0; i < r.total && j < r.DataNum; i++ {
		if present[i] {
			subShards[j] = shards[i]
			validIndices[j] = i
			j++
		}
	}

	dataDecodeMatrix, err := r.decodeMatrix(validIndices)
	if err != nil {
		return err
	}

	if byteCount == 0 {
		return nil
	}

	// Phase 1: missing data shards. Row d of the inverse maps the
	// survivors back to original data shard d.
	outputs := make([][]byte, 0, r.ParityNum)
	matrixRows := make([][]byte, 0, r.ParityNum)
	for i := 0; i < r.DataNum; i++ {
		if !present[i] {
			outputs = append(outputs, shards[i])
			matrixRows = append(matrixRows, dataDecodeMatrix.row(i))
		}
	}
	if len(outputs) > 0 {
		r.codeSplit(matrixRows, subShards, outputs, offset, byteCount)
	}

	// Phase 2: missing parity, regenerated from the now-complete data.
	outputs = outputs[:0]
	matrixRows = matrixRows[:0]
	for i := r.DataNum; i < r.total; i++ {
		if !present[i] {
			outputs = append(outputs, shards[i])
			matrixRows = append(matrixRows, r.parityRows[i-r.DataNum])
		}
	}
	if len(outputs) > 0 {
		r.codeSplit(matrixRows, shards[:r.DataNum], outputs, offset, byteCount)
	}
	return nil
}

func (r *RS) decodeMatrix(validIndices []int) (*matrix, error) {
	if !r.inverseCacheEnabled {
		return r.makeDecodeMatrix(validIndices)
	}
	key := makeInverseCacheKey(validIndices)
	if cached, ok := r.inverseCache.Load(key); ok {
		return cached.(*matrix), nil
	}
	dm, err := r.makeDecodeMatrix(validIndices)
	if err != nil {
		return nil, err
	}
	r.inverseCache.Store(key, dm)
	return dm, nil
}

func makeInverseCacheKey(validIndices []int) uint64 {
	var bitmap uint64
	for _, i := range validIndices {
		bitmap |= 1 << uint(i)
	}
	return bitmap
}

func (r *RS) makeDecodeMatrix(validIndices []int) (*matrix, error) {
	sub := newMatrix(r.DataNum, r.DataNum)
	for j, i := range validIndices {
		copy(sub.row(j), r.encMatrix.row(i))
	}
	return sub.invert()
}

// Update recomputes parity over the window after data shard row changed
// from oldData to newData. It reads the XOR delta of the two versions
// instead of all DataNum data shards, which wins whenever
// 2+ParityNum < DataNum+ParityNum reads matter.
func (r *RS) Update(oldData, newData []byte, row int, parity [][]byte, offset, byteCount int) error {
	err := r.checkUpdate(oldData, newData, row, parity, offset, byteCount)
	if err != nil {
		return err
	}
	if byteCount == 0 {
		return nil
	}

	delta := make([]byte, byteCount)
	xor.Encode(delta, [][]byte{oldData[offset : offset+byteCount], newData[offset : offset+byteCount]})

	for i := 0; i < r.ParityNum; i++ {
		t := mulTbl[r.parityRows[i][row]][:]
		out := parity[i]
		for y := 0; y < byteCount; y++ {
			out[offset+y] ^= t[delta[y]]
		}
	}
	return nil
}

func (r *RS) checkUpdate(oldData, newData []byte, row int, parity [][]byte, offset, byteCount int) error {
	if len(parity) != r.ParityNum {
		return pkgerr.Wrapf(ErrInvalidArgument, "%d parity shards, expect %d", len(parity), r.ParityNum)
	}
	size := len(newData)
	if len(oldData) != size {
		return pkgerr.Wrapf(ErrInvalidArgument, "old data has %d bytes, new data has %d", len(oldData), size)
	}
	for i := range parity {
		if len(parity[i]) != size {
			return pkgerr.Wrapf(ErrInvalidArgument, "parity %d has %d bytes, data has %d", i, len(parity[i]), size)
		}
	}
	if offset < 0 || byteCount < 0 || offset+byteCount > size {
		return pkgerr.Wrapf(ErrInvalidArgument, "window [%d, %d) exceeds shard size %d", offset, offset+byteCount, size)
	}
	if row < 0 || row >= r.DataNum {
		return pkgerr.Wrapf(ErrIndexOutOfRange, "data row %d of %d", row, r.DataNum)
	}
	return nil
}
