package primemap

// array is the growable, indexable backing sequence used for the bucket
// arrays of both map flavours.
type array[T any] struct {
	data []T
}

// makeArray returns an array holding n zero values.
func makeArray[T any](n int) array[T] {
	return array[T]{data: make([]T, n)}
}

//go:nosplit
func (a *array[T]) Len() int {
	return len(a.data)
}

// At returns a pointer to the i-th element, valid until the next Append.
//
//go:nosplit
func (a *array[T]) At(i int) *T {
	return &a.data[i]
}

//go:nosplit
func (a *array[T]) Set(i int, v T) {
	a.data[i] = v
}

func (a *array[T]) Append(v T) {
	a.data = append(a.data, v)
}

// Reset overwrites every element with the zero value, keeping the length.
func (a *array[T]) Reset() {
	clear(a.data)
}

// clone returns a shallow copy backed by its own storage.
func (a *array[T]) clone() array[T] {
	data := make([]T, len(a.data))
	copy(data, a.data)
	return array[T]{data: data}
}
