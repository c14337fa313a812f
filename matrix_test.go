package reedsolomon

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixInverse(t *testing.T) {
	testCases := []struct {
		matrixData     [][]byte
		expectedResult string
		shouldPass     bool
	}{
		// Inverse of a dense matrix.
		{
			[][]byte{
				{56, 23, 98},
				{3, 100, 200},
				{45, 201, 123},
			},
			"[[175, 133, 33], [130, 13, 245], [112, 35, 126]]",
			true,
		},
		// matrix[0][0] == 0 forces a pivot swap.
		{
			[][]byte{
				{0, 23, 98},
				{3, 100, 200},
				{45, 201, 123},
			},
			"[[245, 128, 152], [188, 64, 135], [231, 81, 239]]",
			true,
		},
		// Permuted identity with one dense row.
		{
			[][]byte{
				{1, 0, 0, 0, 0},
				{0, 1, 0, 0, 0},
				{0, 0, 0, 1, 0},
				{0, 0, 0, 0, 1},
				{7, 7, 6, 6, 1},
			},
			"[[1, 0, 0, 0, 0]," +
				" [0, 1, 0, 0, 0]," +
				" [123, 123, 1, 122, 122]," +
				" [0, 0, 1, 0, 0]," +
				" [0, 0, 0, 1, 0]]",
			true,
		},
		// Singular: second row is a multiple of the first.
		{
			[][]byte{
				{4, 2},
				{12, 6},
			},
			"",
			false,
		},
	}

	for i, tc := range testCases {
		m := newMatrixData(tc.matrixData)
		inv, err := m.invert()
		if tc.shouldPass {
			if err != nil {
				t.Fatalf("case %d: unexpected error: %s", i, err)
			}
			if inv.string() != tc.expectedResult {
				t.Fatalf("case %d: inverse mismatch: %s", i, inv.string())
			}
			// M * M^-1 == I and (M^-1)^-1 == M.
			prod, err := m.mul(inv)
			if err != nil {
				t.Fatal(err)
			}
			if !prod.equal(identityMatrix(m.rows)) {
				t.Fatalf("case %d: M * M^-1 != I", i)
			}
			inv2, err := inv.invert()
			if err != nil {
				t.Fatal(err)
			}
			if !inv2.equal(m) {
				t.Fatalf("case %d: double inverse != M", i)
			}
		} else {
			if !errors.Is(err, ErrSingular) {
				t.Fatalf("case %d: expect singular, got %v", i, err)
			}
		}
	}
}

func TestMatrixIdentityMul(t *testing.T) {
	rand.Seed(0)
	m := newMatrix(4, 7)
	fillRandom(m.data)

	left, err := identityMatrix(4).mul(m)
	require.NoError(t, err)
	assert.True(t, left.equal(m))

	right, err := m.mul(identityMatrix(7))
	require.NoError(t, err)
	assert.True(t, right.equal(m))
}

func TestMatrixMulShapeMismatch(t *testing.T) {
	a := newMatrix(3, 4)
	b := newMatrix(3, 4)
	_, err := a.mul(b)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = a.augment(newMatrix(2, 2))
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = a.invert()
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestMatrixAugmentSubMatrix(t *testing.T) {
	a := newMatrixData([][]byte{
		{1, 2},
		{3, 4},
	})
	b := newMatrixData([][]byte{
		{5, 6},
		{7, 8},
	})
	ab, err := a.augment(b)
	require.NoError(t, err)
	assert.Equal(t, "[[1, 2, 5, 6], [3, 4, 7, 8]]", ab.string())

	assert.True(t, ab.subMatrix(0, 0, 2, 2).equal(a))
	assert.True(t, ab.subMatrix(0, 2, 2, 4).equal(b))
	assert.Equal(t, "[[4, 7]]", ab.subMatrix(1, 1, 2, 3).string())
}

func TestMatrixAccessors(t *testing.T) {
	m := newMatrix(2, 3)
	require.NoError(t, m.set(1, 2, 9))
	v, err := m.at(1, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(9), v)

	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 3}} {
		_, err = m.at(rc[0], rc[1])
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "at(%d, %d)", rc[0], rc[1])
		err = m.set(rc[0], rc[1], 1)
		assert.True(t, errors.Is(err, ErrIndexOutOfRange), "set(%d, %d)", rc[0], rc[1])
	}

	// getRow returns a copy, not an alias.
	row, err := m.getRow(1)
	require.NoError(t, err)
	row[2] = 77
	v, _ = m.at(1, 2)
	assert.Equal(t, byte(9), v)

	_, err = m.getRow(5)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestMatrixSwapRows(t *testing.T) {
	m := newMatrixData([][]byte{
		{1, 2},
		{3, 4},
		{5, 6},
	})
	require.NoError(t, m.swapRows(0, 2))
	assert.Equal(t, "[[5, 6], [3, 4], [1, 2]]", m.string())
	require.NoError(t, m.swapRows(1, 1))
	assert.Equal(t, "[[5, 6], [3, 4], [1, 2]]", m.string())
	assert.True(t, errors.Is(m.swapRows(0, 3), ErrIndexOutOfRange))
}

func TestGenEncMatrixVand(t *testing.T) {
	d, p := 7, 3
	em, err := genEncMatrixVand(d, p)
	require.NoError(t, err)
	require.Equal(t, d+p, em.rows)
	require.Equal(t, d, em.cols)

	// Systematic: the top d x d block is the identity.
	assert.True(t, em.subMatrix(0, 0, d, d).equal(identityMatrix(d)))

	// Every d x d submatrix built from distinct rows must be invertible,
	// otherwise some erasure patterns could not be reconstructed.
	rows := [][]int{
		{0, 1, 2, 3, 4, 5, 6},
		{1, 2, 3, 4, 5, 6, 7},
		{0, 2, 4, 6, 7, 8, 9},
		{3, 4, 5, 6, 7, 8, 9},
	}
	for _, sel := range rows {
		sub := newMatrix(d, d)
		for j, r := range sel {
			copy(sub.row(j), em.row(r))
		}
		_, err = sub.invert()
		require.NoError(t, err, "rows %v", sel)
	}
}

func BenchmarkInvert10x10(b *testing.B) {
	benchmarkInvert(b, 10)
}

func benchmarkInvert(b *testing.B, size int) {
	rand.Seed(0)
	m := newMatrix(size, size)
	fillRandom(m.data)
	// A random matrix can be singular; retry until it is not.
	for {
		if _, err := m.invert(); err == nil {
			break
		}
		fillRandom(m.data)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.invert()
	}
}
