package reedsolomon

import (
	"errors"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// matrix is a dense byte matrix over GF(2^8).
// data is row-major: row r is data[r*cols : (r+1)*cols].
type matrix struct {
	rows int
	cols int
	data []byte
}

func newMatrix(rows, cols int) *matrix {
	return &matrix{rows: rows, cols: cols, data: make([]byte, rows*cols)}
}

// newMatrixData wraps rows of equal length, copying them into a flat buffer.
func newMatrixData(rows [][]byte) *matrix {
	m := newMatrix(len(rows), len(rows[0]))
	for r, row := range rows {
		copy(m.row(r), row)
	}
	return m
}

func identityMatrix(n int) *matrix {
	m := newMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

func (m *matrix) row(r int) []byte {
	return m.data[r*m.cols : (r+1)*m.cols]
}

var ErrIndexOutOfRange = errors.New("reedsolomon: matrix index out of range")

func (m *matrix) at(r, c int) (byte, error) {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		return 0, pkgerr.Wrapf(ErrIndexOutOfRange, "(%d, %d) in %dx%d", r, c, m.rows, m.cols)
	}
	return m.data[r*m.cols+c], nil
}

func (m *matrix) set(r, c int, v byte) error {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		return pkgerr.Wrapf(ErrIndexOutOfRange, "(%d, %d) in %dx%d", r, c, m.rows, m.cols)
	}
	m.data[r*m.cols+c] = v
	return nil
}

// getRow returns a copy of row r.
func (m *matrix) getRow(r int) ([]byte, error) {
	if r < 0 || r >= m.rows {
		return nil, pkgerr.Wrapf(ErrIndexOutOfRange, "row %d of %d", r, m.rows)
	}
	out := make([]byte, m.cols)
	copy(out, m.row(r))
	return out, nil
}

func (m *matrix) swapRows(r1, r2 int) error {
	if r1 < 0 || r1 >= m.rows || r2 < 0 || r2 >= m.rows {
		return pkgerr.Wrapf(ErrIndexOutOfRange, "rows %d, %d of %d", r1, r2, m.rows)
	}
	if r1 == r2 {
		return nil
	}
	a, b := m.row(r1), m.row(r2)
	for i := range a {
		a[i], b[i] = b[i], a[i]
	}
	return nil
}

var ErrShapeMismatch = errors.New("reedsolomon: matrix shape mismatch")

// mul returns m * right.
func (m *matrix) mul(right *matrix) (*matrix, error) {
	if m.cols != right.rows {
		return nil, pkgerr.Wrapf(ErrShapeMismatch, "%dx%d * %dx%d", m.rows, m.cols, right.rows, right.cols)
	}
	result := newMatrix(m.rows, right.cols)
	for r := 0; r < result.rows; r++ {
		mRow := m.row(r)
		for c := 0; c < result.cols; c++ {
			var value byte
			for i := 0; i < m.cols; i++ {
				value ^= gfMul(mRow[i], right.data[i*right.cols+c])
			}
			result.data[r*result.cols+c] = value
		}
	}
	return result, nil
}

// augment returns [m | right].
func (m *matrix) augment(right *matrix) (*matrix, error) {
	if m.rows != right.rows {
		return nil, pkgerr.Wrapf(ErrShapeMismatch, "%d rows vs %d rows", m.rows, right.rows)
	}
	result := newMatrix(m.rows, m.cols+right.cols)
	for r := 0; r < m.rows; r++ {
		copy(result.row(r)[:m.cols], m.row(r))
		copy(result.row(r)[m.cols:], right.row(r))
	}
	return result, nil
}

// subMatrix returns the half-open row/column range [rmin, rmax) x [cmin, cmax).
func (m *matrix) subMatrix(rmin, cmin, rmax, cmax int) *matrix {
	result := newMatrix(rmax-rmin, cmax-cmin)
	for r := rmin; r < rmax; r++ {
		copy(result.row(r-rmin), m.row(r)[cmin:cmax])
	}
	return result
}

var ErrSingular = errors.New("reedsolomon: matrix is singular")

// invert returns the inverse of a square matrix,
// computed by augmenting with the identity and running
// Gauss-Jordan elimination in GF(2^8).
func (m *matrix) invert() (*matrix, error) {
	if m.rows != m.cols {
		return nil, pkgerr.Wrapf(ErrShapeMismatch, "invert %dx%d", m.rows, m.cols)
	}
	n := m.rows
	work, err := m.augment(identityMatrix(n))
	if err != nil {
		return nil, err
	}
	err = work.gaussJordan()
	if err != nil {
		return nil, err
	}
	return work.subMatrix(0, n, n, 2*n), nil
}

func (m *matrix) gaussJordan() error {
	rows, cols := m.rows, m.cols
	for r := 0; r < rows; r++ {
		// If the element on the diagonal is 0, find a row below
		// that has a non-zero in this column and swap them.
		if m.data[r*cols+r] == 0 {
			for rowBelow := r + 1; rowBelow < rows; rowBelow++ {
				if m.data[rowBelow*cols+r] != 0 {
					m.swapRows(r, rowBelow)
					break
				}
			}
		}
		// Still 0 after the swap: the whole column is 0, det is 0.
		if m.data[r*cols+r] == 0 {
			return pkgerr.Wrapf(ErrSingular, "no pivot in column %d", r)
		}
		// Scale the pivot to 1.
		if d := m.data[r*cols+r]; d != 1 {
			scale := inverseTbl[d]
			row := m.row(r)
			for c := range row {
				row[c] = gfMul(row[c], scale)
			}
		}
		// Clear the column below the pivot.
		for rowBelow := r + 1; rowBelow < rows; rowBelow++ {
			if scale := m.data[rowBelow*cols+r]; scale != 0 {
				pivotRow, below := m.row(r), m.row(rowBelow)
				for c := range below {
					below[c] ^= gfMul(scale, pivotRow[c])
				}
			}
		}
	}
	// Now clear the part above the main diagonal.
	for d := 0; d < rows; d++ {
		for rowAbove := 0; rowAbove < d; rowAbove++ {
			if scale := m.data[rowAbove*cols+d]; scale != 0 {
				pivotRow, above := m.row(d), m.row(rowAbove)
				for c := range above {
					above[c] ^= gfMul(scale, pivotRow[c])
				}
			}
		}
	}
	return nil
}

func (m *matrix) equal(other *matrix) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := range m.data {
		if m.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

func (m *matrix) string() string {
	rowOut := make([]string, 0, m.rows)
	for r := 0; r < m.rows; r++ {
		colOut := make([]string, 0, m.cols)
		for _, v := range m.row(r) {
			colOut = append(colOut, strconv.Itoa(int(v)))
		}
		rowOut = append(rowOut, "["+strings.Join(colOut, ", ")+"]")
	}
	return "[" + strings.Join(rowOut, ", ") + "]"
}

// genVandMatrix builds the rows x cols Vandermonde matrix with
// entry (r, c) = r^c in the field. Any square subset of its rows
// is invertible, which is what makes reconstruction possible.
func genVandMatrix(rows, cols int) *matrix {
	m := newMatrix(rows, cols)
	for r := 0; r < rows; r++ {
		row := m.row(r)
		for c := range row {
			row[c] = gfExp(byte(r), c)
		}
	}
	return m
}

// genEncMatrixVand builds the (data+parity) x data systematic encode matrix:
// Vandermonde, then normalized so the top data x data block is the identity.
func genEncMatrixVand(data, parity int) (*matrix, error) {
	vm := genVandMatrix(data+parity, data)
	top := vm.subMatrix(0, 0, data, data)
	topInv, err := top.invert()
	if err != nil {
		return nil, err
	}
	return vm.mul(topInv)
}
