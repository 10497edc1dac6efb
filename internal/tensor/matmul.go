package tensor

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum number of output elements before a
// matmul is split across goroutines. Small matrices are cheaper single
// threaded.
const parallelThreshold = 16 * 1024

// Gemm computes C = alpha*A*B + beta*C for row-major matrices,
// parallelising across ranges of output rows.
func Gemm(C, A, B *Mat, alpha, beta float32) {
	if A.C != B.R || C.R != A.R || C.C != B.C {
		panic("gemm: dimension mismatch")
	}
	parallelRows(C.R, C.R*C.C, func(rs, re int) {
		for i := rs; i < re; i++ {
			ci := C.Row(i)
			if beta == 0 {
				for j := range ci {
					ci[j] = 0
				}
			} else if beta != 1 {
				for j := range ci {
					ci[j] *= beta
				}
			}
			ai := A.Row(i)
			for k := 0; k < A.C; k++ {
				a := alpha * ai[k]
				if a == 0 {
					continue
				}
				bk := B.Row(k)
				for j := range ci {
					ci[j] += a * bk[j]
				}
			}
		}
	})
}

// GemmTB computes C = alpha*A*transpose(B) + beta*C.
// A is [m x k], B is [n x k] and C is [m x n]. This is the layout used by
// a linear layer forward pass where weights are stored [out x in].
func GemmTB(C, A, B *Mat, alpha, beta float32) {
	if A.C != B.C || C.R != A.R || C.C != B.R {
		panic("gemm_tb: dimension mismatch")
	}
	parallelRows(C.R, C.R*C.C, func(rs, re int) {
		for i := rs; i < re; i++ {
			ai := A.Row(i)
			ci := C.Row(i)
			for j := 0; j < B.R; j++ {
				sum := alpha * Dot(ai, B.Row(j))
				if beta == 0 {
					ci[j] = sum
				} else {
					ci[j] = beta*ci[j] + sum
				}
			}
		}
	})
}

// GemmTA computes C = alpha*transpose(A)*B + beta*C.
// A is [k x m], B is [k x n] and C is [m x n]. This is the layout used to
// accumulate weight gradients from a batch of activations.
func GemmTA(C, A, B *Mat, alpha, beta float32) {
	if A.R != B.R || C.R != A.C || C.C != B.C {
		panic("gemm_ta: dimension mismatch")
	}
	parallelRows(C.R, C.R*C.C, func(rs, re int) {
		for i := rs; i < re; i++ {
			ci := C.Row(i)
			if beta == 0 {
				for j := range ci {
					ci[j] = 0
				}
			} else if beta != 1 {
				for j := range ci {
					ci[j] *= beta
				}
			}
			for k := 0; k < A.R; k++ {
				a := alpha * A.Row(k)[i]
				if a == 0 {
					continue
				}
				bk := B.Row(k)
				for j := range ci {
					ci[j] += a * bk[j]
				}
			}
		}
	})
}

// parallelRows runs fn over [0,rows) split into contiguous chunks, one per
// worker, when the output is large enough to justify the goroutines.
func parallelRows(rows, elems int, fn func(rs, re int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > rows {
		workers = rows
	}
	if workers <= 1 || elems < parallelThreshold {
		fn(0, rows)
		return
	}
	chunk := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		rs := w * chunk
		if rs >= rows {
			break
		}
		re := rs + chunk
		if re > rows {
			re = rows
		}
		wg.Add(1)
		go func(rs, re int) {
			defer wg.Done()
			fn(rs, re)
		}(rs, re)
	}
	wg.Wait()
}
