// Copyright (c) 2017 Temple3x (temple3x@gmail.com)
//
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package reedsolomon

import (
	"errors"

	pkgerr "github.com/pkg/errors"
)

// GF(2^8) with primitive polynomial x^8+x^4+x^3+x^2+1 (0x11d),
// generator 2. Addition is XOR, multiplication via tables.
const primitivePolynomial = 0x11d

var (
	expTbl     [256]byte      // expTbl[i] = 2^i (expTbl[255] == expTbl[0] == 1).
	logTbl     [256]byte      // logTbl[expTbl[i]] = i for i in [0, 255); logTbl[0] is never read.
	inverseTbl [256]byte      // inverseTbl[a] = 1/a; inverseTbl[0] is never read.
	mulTbl     [256][256]byte // Full product table, the hot-path back-end.
)

func init() {
	x := 1
	for i := 0; i < 255; i++ {
		expTbl[i] = byte(x)
		logTbl[byte(x)] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= primitivePolynomial
		}
	}
	expTbl[255] = expTbl[0]

	for a := 1; a < 256; a++ {
		for b := 1; b < 256; b++ {
			logSum := int(logTbl[a]) + int(logTbl[b])
			if logSum >= 255 {
				logSum -= 255
			}
			mulTbl[a][b] = expTbl[logSum]
		}
	}

	for a := 1; a < 256; a++ {
		inverseTbl[a] = expTbl[255-int(logTbl[a])]
	}
}

// a * b
func gfMul(a, b byte) byte {
	return mulTbl[a][b]
}

var ErrDivisionByZero = errors.New("reedsolomon: division by zero in GF(2^8)")

// a / b
func gfDiv(a, b byte) (byte, error) {
	if b == 0 {
		return 0, pkgerr.Wrapf(ErrDivisionByZero, "dividend: %d", a)
	}
	if a == 0 {
		return 0, nil
	}
	logResult := int(logTbl[a]) - int(logTbl[b])
	if logResult < 0 {
		logResult += 255
	}
	return expTbl[logResult], nil
}

// a ^ n (repeated multiplication in the field, not XOR).
func gfExp(a byte, n int) byte {
	if n == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	logResult := int(logTbl[a]) * n
	for logResult >= 255 {
		logResult -= 255
	}
	return expTbl[logResult]
}
