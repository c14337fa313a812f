// Copyright (c) 2017 Temple3x (temple3x@gmail.com)
//
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// This tool enumerates the degree-8 primitive polynomials over GF(2) and
// prints the exponent, log, inverse and (truncated) multiplication tables
// for x^8+x^4+x^3+x^2+1, the polynomial the library builds its tables
// from at init time. Useful for eyeballing against published GF(2^8)
// tables when porting.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

const deg = 8

type polynomial [deg + 1]byte

func main() {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	fmt.Fprintf(w, "%d degree primitive polynomials:\n", deg)
	for i, p := range genPrimitivePolynomials() {
		fmt.Fprintf(w, "%d. %s\n", i+1, formatPolynomial(p))
	}

	// x^8+x^4+x^3+x^2+1 (0x11d), the one the library uses.
	var pp polynomial
	pp[0], pp[2], pp[3], pp[4], pp[8] = 1, 1, 1, 1, 1

	expTable := genExpTable(pp, (1<<deg)-1)
	fmt.Fprintf(w, "\nexpTbl: %#v\n", expTable)

	logTable := genLogTable(expTable)
	fmt.Fprintf(w, "\nlogTbl: %#v\n", logTable)

	mulTable := genMulTable(expTable, logTable)
	fmt.Fprintf(w, "\nmulTbl (rows 0-3): %#v\n", mulTable[:4])

	fmt.Fprintf(w, "\ninverseTbl: %#v\n", genInverseTable(mulTable))
}

// genPrimitivePolynomials returns every degree-8 polynomial whose
// primitive element has order 2^deg-1.
func genPrimitivePolynomials() []polynomial {
	// The constant term must be 1 (x is not a factor),
	// leaving 2^(deg-1) candidates.
	cnt := 1 << (deg - 1)
	var candidates []polynomial
	var p polynomial
	p[0] = 1
	p[deg] = 1
	for i := 0; i < cnt; i++ {
		p = nextPolynomial(p, 1)
		candidates = append(candidates, p)
	}

	var ps []polynomial
	for _, p := range candidates {
		// x+1 must not divide, so the number of set coefficients is odd.
		var n int
		for _, v := range p {
			if v == 1 {
				n++
			}
		}
		if n&1 == 0 {
			continue
		}
		// Primitive iff 1 appears exactly once in the exponent table.
		var ones int
		for _, v := range genExpTable(p, (1<<deg)-1) {
			if v == 1 {
				ones++
			}
		}
		if ones == 1 {
			ps = append(ps, p)
		}
	}
	return ps
}

func nextPolynomial(p polynomial, i int) polynomial {
	if p[i] == 0 {
		p[i] = 1
	} else {
		p[i] = 0
		i++
		if i == deg {
			return p
		}
		p = nextPolynomial(p, i)
	}
	return p
}

func genExpTable(pp polynomial, n int) []byte {
	table := make([]byte, n)
	var raw polynomial
	raw[1] = 1
	table[0] = 1
	table[1] = 2
	for i := 2; i < n; i++ {
		raw = growPolynomial(raw, pp)
		table[i] = polynomialValue(raw)
	}
	return table
}

// growPolynomial multiplies by x and reduces by the primitive polynomial.
func growPolynomial(raw, pp polynomial) polynomial {
	var next polynomial
	for i, v := range raw[:deg] {
		if v == 1 {
			next[i+1] = 1
		}
	}
	if next[deg] == 1 {
		for i, v := range pp[:deg] {
			if v == 1 {
				next[i] ^= 1
			}
		}
	}
	next[deg] = 0
	return next
}

func polynomialValue(p polynomial) byte {
	var v byte
	for i, coefficient := range p[:deg] {
		if coefficient != 0 {
			v += 1 << uint(i)
		}
	}
	return v
}

func genLogTable(expTable []byte) []byte {
	table := make([]byte, 1<<deg)
	for i, v := range expTable {
		table[v] = byte(i)
	}
	return table
}

func genMulTable(expTable, logTable []byte) (result [256][256]byte) {
	for a := range result {
		for b := range result[a] {
			if a == 0 || b == 0 {
				continue
			}
			logSum := int(logTable[a]) + int(logTable[b])
			for logSum >= 255 {
				logSum -= 255
			}
			result[a][b] = expTable[logSum]
		}
	}
	return result
}

func genInverseTable(mulTable [256][256]byte) [256]byte {
	var inverseTable [256]byte
	for i, t := range mulTable {
		for j, v := range t {
			if v == 1 {
				inverseTable[i] = byte(j)
			}
		}
	}
	return inverseTable
}

func formatPolynomial(p polynomial) string {
	var ps string
	for i := deg; i > 1; i-- {
		if p[i] == 1 {
			ps += "x^" + strconv.Itoa(i) + "+"
		}
	}
	if p[1] == 1 {
		ps += "x+"
	}
	if p[0] == 1 {
		ps += "1"
	}
	return ps
}
