package tensor

// Cat concatenates tensors along the specified dimension.
//
// All tensors must have the same shape except along the concatenation dimension.
// Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	a := tensor.Randn[float32](Shape{2, 3, 8, 8}, backend)
//	b := tensor.Randn[float32](Shape{2, 5, 8, 8}, backend)
//	c := tensor.Cat([]*Tensor[float32, B]{a, b}, 1) // Shape: [2, 8, 8, 8]
func Cat[T DType, B Backend](tensors []*Tensor[T, B], dim int) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	if len(tensors) == 1 {
		return tensors[0].Clone()
	}

	rawTensors := make([]*RawTensor, len(tensors))
	backend := tensors[0].backend
	for i, t := range tensors {
		rawTensors[i] = t.raw
	}

	result := backend.Cat(rawTensors, dim)
	return New[T, B](result, backend)
}

// Split splits the tensor into consecutive parts along dim.
// The sizes must sum to the extent of dim.
//
// Example:
//
//	x := tensor.Randn[float32](Shape{2, 10, 4, 4}, backend)
//	parts := x.Split([]int{3, 7}, 1) // [2, 3, 4, 4] and [2, 7, 4, 4]
func (t *Tensor[T, B]) Split(sizes []int, dim int) []*Tensor[T, B] {
	rawParts := t.backend.Split(t.raw, sizes, dim)
	parts := make([]*Tensor[T, B], len(rawParts))
	for i, raw := range rawParts {
		parts[i] = New[T, B](raw, t.backend)
	}
	return parts
}
