package types

// Array is a dense, row-major n-dimensional array of float64 values. It is the
// array-like value produced by the built-in handlers.
type Array struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// NewArray returns a zero-filled Array with the given shape. A negative
// dimension yields no elements.
func NewArray(shape ...int) *Array {
	return &Array{
		Shape: append([]int(nil), shape...),
		Data:  make([]float64, product(shape)),
	}
}

// Size returns the number of elements implied by the shape.
func (a *Array) Size() int {
	return product(a.Shape)
}

// Frames returns the length of the leading dimension, or 0 for a scalar.
func (a *Array) Frames() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// Squeeze returns a copy of a with every dimension of length one removed.
// The data slice is shared.
func (a *Array) Squeeze() *Array {
	shape := make([]int, 0, len(a.Shape))
	for _, d := range a.Shape {
		if d != 1 {
			shape = append(shape, d)
		}
	}
	return &Array{Shape: shape, Data: a.Data}
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0
		}
		n *= d
	}
	return n
}
