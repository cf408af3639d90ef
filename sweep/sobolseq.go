package sweep

import "fmt"

// Gray-code Sobol sequence generator over 32-bit direction numbers.
// Direction numbers are the Joe-Kuo D6 set, embedded for the first 32
// dimensions; d*nMatrices beyond that is rejected up front.

const (
	sobolMaxDims = 32
	sobolBits    = 32
)

// sobolDirection holds one dimension's primitive-polynomial coefficients (a)
// and initial direction values (m), per Joe & Kuo.
type sobolDirection struct {
	a uint32
	m []uint32
}

// joeKuoDirections covers dimensions 2..32; dimension 1 is the van der Corput
// sequence in base 2 and needs no table entry.
var joeKuoDirections = []sobolDirection{
	{a: 0, m: []uint32{1}},
	{a: 1, m: []uint32{1, 3}},
	{a: 1, m: []uint32{1, 3, 1}},
	{a: 2, m: []uint32{1, 1, 1}},
	{a: 1, m: []uint32{1, 1, 3, 3}},
	{a: 4, m: []uint32{1, 3, 5, 13}},
	{a: 2, m: []uint32{1, 1, 5, 5, 17}},
	{a: 4, m: []uint32{1, 1, 5, 5, 5}},
	{a: 7, m: []uint32{1, 1, 7, 11, 19}},
	{a: 11, m: []uint32{1, 1, 5, 1, 1}},
	{a: 13, m: []uint32{1, 1, 1, 3, 11}},
	{a: 14, m: []uint32{1, 3, 5, 5, 31}},
	{a: 1, m: []uint32{1, 3, 3, 9, 7, 49}},
	{a: 13, m: []uint32{1, 1, 1, 15, 21, 21}},
	{a: 16, m: []uint32{1, 3, 1, 13, 27, 49}},
	{a: 19, m: []uint32{1, 1, 1, 15, 7, 5}},
	{a: 22, m: []uint32{1, 3, 1, 15, 13, 25}},
	{a: 25, m: []uint32{1, 1, 5, 5, 19, 61}},
	{a: 1, m: []uint32{1, 3, 7, 11, 23, 15, 103}},
	{a: 4, m: []uint32{1, 3, 7, 13, 13, 15, 69}},
	{a: 7, m: []uint32{1, 1, 3, 13, 7, 35, 63}},
	{a: 8, m: []uint32{1, 3, 5, 9, 1, 25, 53}},
	{a: 14, m: []uint32{1, 3, 1, 13, 9, 35, 107}},
	{a: 19, m: []uint32{1, 3, 1, 5, 27, 61, 31}},
	{a: 21, m: []uint32{1, 1, 5, 11, 19, 41, 61}},
	{a: 28, m: []uint32{1, 3, 5, 3, 3, 13, 69}},
	{a: 31, m: []uint32{1, 1, 7, 13, 1, 19, 1}},
	{a: 32, m: []uint32{1, 3, 7, 5, 13, 19, 59}},
	{a: 37, m: []uint32{1, 1, 3, 9, 25, 29, 41}},
	{a: 41, m: []uint32{1, 3, 5, 13, 23, 1, 55}},
	{a: 42, m: []uint32{1, 3, 7, 3, 13, 59, 17}},
}

// sobolSequence yields successive low-discrepancy points by Gray-code
// stepping: point 0 is the origin, and each step XORs one direction number
// into the running state.
type sobolSequence struct {
	dims  int
	v     [][]uint32 // [dim][bit], already scaled to 32-bit fractions
	x     []uint32
	index uint64
}

func newSobolSequence(dims int) (*sobolSequence, error) {
	if dims < 1 {
		return nil, fmt.Errorf("%w: sobol sequence needs at least 1 dimension", ErrValidation)
	}
	if dims > sobolMaxDims {
		return nil, fmt.Errorf("%w: sobol sequence supports up to %d dimensions, got %d",
			ErrValidation, sobolMaxDims, dims)
	}
	s := &sobolSequence{
		dims: dims,
		v:    make([][]uint32, dims),
		x:    make([]uint32, dims),
	}
	for dim := 0; dim < dims; dim++ {
		v := make([]uint32, sobolBits)
		if dim == 0 {
			for k := 0; k < sobolBits; k++ {
				v[k] = 1 << (sobolBits - 1 - k)
			}
		} else {
			dir := joeKuoDirections[dim-1]
			deg := len(dir.m)
			for k := 0; k < deg; k++ {
				v[k] = dir.m[k] << (sobolBits - 1 - k)
			}
			for k := deg; k < sobolBits; k++ {
				v[k] = v[k-deg] ^ (v[k-deg] >> uint(deg))
				for i := 1; i < deg; i++ {
					if (dir.a>>uint(deg-1-i))&1 == 1 {
						v[k] ^= v[k-i]
					}
				}
			}
		}
		s.v[dim] = v
	}
	return s, nil
}

// Next returns the next point as fractions in [0,1). The first call returns
// the origin.
func (s *sobolSequence) Next() []float64 {
	point := make([]float64, s.dims)
	for dim := 0; dim < s.dims; dim++ {
		point[dim] = float64(s.x[dim]) / (1 << sobolBits)
	}
	// Gray-code step: flip the direction number of the lowest zero bit of
	// the current index.
	c := 0
	for i := s.index; i&1 == 1; i >>= 1 {
		c++
	}
	for dim := 0; dim < s.dims; dim++ {
		s.x[dim] ^= s.v[dim][c]
	}
	s.index++
	return point
}

// Skip discards the next k points.
func (s *sobolSequence) Skip(k int) {
	for i := 0; i < k; i++ {
		s.Next()
	}
}
