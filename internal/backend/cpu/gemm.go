package cpu

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// gemm computes C = op(A) * B where op(A) is A or Aᵀ.
//
// All matrices are row-major. op(A) is m×k, B is k×n and C is m×n;
// C is overwritten. lda/ldb/ldc are the row strides of the stored matrices.
func gemm[T float32 | float64](transA bool, m, n, k int, a []T, lda int, b []T, ldb int, c []T, ldc int) {
	tA := blas.NoTrans
	aRows, aCols := m, k
	if transA {
		tA = blas.Trans
		aRows, aCols = k, m
	}

	switch a := any(a).(type) {
	case []float32:
		blas32.Gemm(tA, blas.NoTrans, 1,
			blas32.General{Rows: aRows, Cols: aCols, Data: a, Stride: lda},
			blas32.General{Rows: k, Cols: n, Data: any(b).([]float32), Stride: ldb},
			0,
			blas32.General{Rows: m, Cols: n, Data: any(c).([]float32), Stride: ldc})
	case []float64:
		blas64.Gemm(tA, blas.NoTrans, 1,
			blas64.General{Rows: aRows, Cols: aCols, Data: a, Stride: lda},
			blas64.General{Rows: k, Cols: n, Data: any(b).([]float64), Stride: ldb},
			0,
			blas64.General{Rows: m, Cols: n, Data: any(c).([]float64), Stride: ldc})
	}
}
