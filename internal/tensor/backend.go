package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - CPU: Pure Go with gonum BLAS for the convolution and matmul GEMMs
type Backend interface {
	// Element-wise binary operations (NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor // 2D: (M, K) @ (K, N) -> (M, N)

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Manipulation operations
	Cat(tensors []*RawTensor, dim int) *RawTensor         // concatenate along dimension
	Split(x *RawTensor, sizes []int, dim int) []*RawTensor // split into consecutive parts

	// Convolutional operations over any number of spatial axes.
	// Input layout is [N, C, spatial...].
	Conv(input, kernel *RawTensor, params ConvParams) *RawTensor
	ConvTranspose(input, kernel *RawTensor, params ConvTransposeParams) *RawTensor
	MaxPool(input *RawTensor, params PoolParams) *RawTensor
	AvgPool(input *RawTensor, params PoolParams) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
