package tensor

import (
	"math"
	"testing"
)

func gemmNaive(C, A, B *Mat) {
	for i := 0; i < A.R; i++ {
		for j := 0; j < B.C; j++ {
			var sum float32
			for kk := 0; kk < A.C; kk++ {
				sum += A.Row(i)[kk] * B.Row(kk)[j]
			}
			C.Row(i)[j] = sum
		}
	}
}

func maxAbsDiff(a, b []float32) float64 {
	var maxAbs float64
	for i := range a {
		d := math.Abs(float64(a[i] - b[i]))
		if d > maxAbs {
			maxAbs = d
		}
	}
	return maxAbs
}

func TestGemmMatchesNaive(t *testing.T) {
	A := NewMat(50, 70)
	B := NewMat(70, 45)
	C0 := NewMat(50, 45)
	C1 := NewMat(50, 45)

	FillRand(&A, 1)
	FillRand(&B, 2)

	gemmNaive(&C0, &A, &B)
	Gemm(&C1, &A, &B, 1, 0)

	if maxAbs := maxAbsDiff(C0.Data, C1.Data); maxAbs > 1e-4 {
		t.Fatalf("max abs diff %g", maxAbs)
	}
}

func TestGemmAccumulate(t *testing.T) {
	A := NewMat(8, 8)
	B := NewMat(8, 8)
	C := NewMat(8, 8)
	FillRand(&A, 3)
	FillRand(&B, 4)
	for i := range C.Data {
		C.Data[i] = 1
	}
	// C = 2*A*B + 0.5*C
	ref := NewMat(8, 8)
	gemmNaive(&ref, &A, &B)
	for i := range ref.Data {
		ref.Data[i] = 2*ref.Data[i] + 0.5
	}
	Gemm(&C, &A, &B, 2, 0.5)
	if maxAbs := maxAbsDiff(ref.Data, C.Data); maxAbs > 1e-4 {
		t.Fatalf("max abs diff %g", maxAbs)
	}
}

func TestGemmTBMatchesNaive(t *testing.T) {
	A := NewMat(20, 30)
	B := NewMat(25, 30) // transposed operand
	FillRand(&A, 5)
	FillRand(&B, 6)

	Bt := NewMat(30, 25)
	for i := 0; i < B.R; i++ {
		for j := 0; j < B.C; j++ {
			Bt.Row(j)[i] = B.Row(i)[j]
		}
	}
	ref := NewMat(20, 25)
	gemmNaive(&ref, &A, &Bt)

	C := NewMat(20, 25)
	GemmTB(&C, &A, &B, 1, 0)
	if maxAbs := maxAbsDiff(ref.Data, C.Data); maxAbs > 1e-4 {
		t.Fatalf("max abs diff %g", maxAbs)
	}
}

func TestGemmTAMatchesNaive(t *testing.T) {
	A := NewMat(30, 20) // transposed operand
	B := NewMat(30, 25)
	FillRand(&A, 7)
	FillRand(&B, 8)

	At := NewMat(20, 30)
	for i := 0; i < A.R; i++ {
		for j := 0; j < A.C; j++ {
			At.Row(j)[i] = A.Row(i)[j]
		}
	}
	ref := NewMat(20, 25)
	gemmNaive(&ref, &At, &B)

	C := NewMat(20, 25)
	GemmTA(&C, &A, &B, 1, 0)
	if maxAbs := maxAbsDiff(ref.Data, C.Data); maxAbs > 1e-4 {
		t.Fatalf("max abs diff %g", maxAbs)
	}
}
