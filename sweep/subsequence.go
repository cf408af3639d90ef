package sweep

// Subsequence selection for Sobol-derived designs. Requests near a power of
// two get special treatment because the raw sequence is balanced only on
// power-of-two blocks; the rules live here as one decision table rather than
// scattered conditionals.
//
//	n = 2^k      -> take the first n points (the origin included)
//	n = 2^k - 1  -> skip the degenerate leading origin, start mid-sequence
//	n = 2^k + 1  -> draw n-1 points, then append the all-ones point
//	otherwise    -> take from the sequence start
//
// Callers may pin either behavior explicitly via skipStart / includeOne.
type sobolWindow struct {
	Skip      int  // points discarded before the window
	Take      int  // points drawn from the generator
	AppendOne bool // append the all-ones point after the window
}

func sobolWindowFor(n int, skipStart, includeOne *bool) sobolWindow {
	defaultSkip := false
	defaultOne := false
	switch {
	case isPowerOfTwo(n):
	case isPowerOfTwo(n + 1):
		defaultSkip = true
	case n > 1 && isPowerOfTwo(n-1):
		defaultOne = true
	}

	w := sobolWindow{Take: n}
	if resolveOverride(skipStart, defaultSkip) {
		w.Skip = 1
	}
	if resolveOverride(includeOne, defaultOne) {
		w.Take = n - 1
		w.AppendOne = true
	}
	return w
}

func resolveOverride(override *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	return fallback
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
