// Package npz builds homogeneous n-dimensional arrays from Go values and
// stores them as compressed NumPy-compatible .npz archives.
package npz

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
)

var (
	ErrShapeMismatch = errors.New("heterogeneous array shapes")
	ErrUnsupported   = errors.New("unsupported array value")
)

// DType is a NumPy type descriptor.
type DType string

const (
	Bool    DType = "|b1"
	Int8    DType = "|i1"
	Int16   DType = "<i2"
	Int32   DType = "<i4"
	Int64   DType = "<i8"
	Uint8   DType = "|u1"
	Uint16  DType = "<u2"
	Uint32  DType = "<u4"
	Uint64  DType = "<u8"
	Float32 DType = "<f4"
	Float64 DType = "<f8"
)

// ItemSize returns the width of one element in bytes.
func (d DType) ItemSize() int {
	switch d {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// Array is a dense little-endian array in C order.
type Array struct {
	DType DType
	Shape []int
	Data  []byte
}

// Marshaler is implemented by values that know their own array layout.
type Marshaler interface {
	MarshalArray() (Array, error)
}

// Len is the number of elements.
func (a Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

func (a Array) String() string {
	return fmt.Sprintf("%s%v", a.DType, a.Shape)
}

// SameLayout reports whether both arrays share dtype and shape.
func (a Array) SameLayout(b Array) bool {
	return a.DType == b.DType && slices.Equal(a.Shape, b.Shape)
}

// ZerosLike returns a zero-filled array with the layout of a.
func ZerosLike(a Array) Array {
	return Array{
		DType: a.DType,
		Shape: slices.Clone(a.Shape),
		Data:  make([]byte, len(a.Data)),
	}
}

// Stack joins arrays of identical layout along a new leading axis.
func Stack(arrays []Array) (Array, error) {
	if len(arrays) == 0 {
		return Array{}, fmt.Errorf("%w: nothing to stack", ErrUnsupported)
	}
	first := arrays[0]
	data := make([]byte, 0, len(first.Data)*len(arrays))
	for i, a := range arrays {
		if !a.SameLayout(first) {
			return Array{}, fmt.Errorf("%w: element %d is %s, element 0 is %s", ErrShapeMismatch, i, a, first)
		}
		data = append(data, a.Data...)
	}
	return Array{
		DType: first.DType,
		Shape: append([]int{len(arrays)}, first.Shape...),
		Data:  data,
	}, nil
}

// FromValue converts a scalar, a rectangular (nested) slice or array of
// scalars, or a Marshaler into an Array.
func FromValue(v any) (Array, error) {
	if v == nil {
		return Array{}, fmt.Errorf("%w: nil", ErrUnsupported)
	}
	var a Array
	dtype, shape, err := encode(reflect.ValueOf(v), &a.Data)
	if err != nil {
		return Array{}, err
	}
	a.DType = dtype
	a.Shape = shape
	return a, nil
}

func encode(rv reflect.Value, buf *[]byte) (DType, []int, error) {
	if rv.CanInterface() {
		if m, ok := rv.Interface().(Marshaler); ok {
			a, err := m.MarshalArray()
			if err != nil {
				return "", nil, err
			}
			*buf = append(*buf, a.Data...)
			return a.DType, a.Shape, nil
		}
	}

	le := binary.LittleEndian
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			*buf = append(*buf, 1)
		} else {
			*buf = append(*buf, 0)
		}
		return Bool, nil, nil
	case reflect.Int8:
		*buf = append(*buf, byte(rv.Int()))
		return Int8, nil, nil
	case reflect.Int16:
		*buf = le.AppendUint16(*buf, uint16(rv.Int()))
		return Int16, nil, nil
	case reflect.Int32:
		*buf = le.AppendUint32(*buf, uint32(rv.Int()))
		return Int32, nil, nil
	case reflect.Int, reflect.Int64:
		*buf = le.AppendUint64(*buf, uint64(rv.Int()))
		return Int64, nil, nil
	case reflect.Uint8:
		*buf = append(*buf, byte(rv.Uint()))
		return Uint8, nil, nil
	case reflect.Uint16:
		*buf = le.AppendUint16(*buf, uint16(rv.Uint()))
		return Uint16, nil, nil
	case reflect.Uint32:
		*buf = le.AppendUint32(*buf, uint32(rv.Uint()))
		return Uint32, nil, nil
	case reflect.Uint, reflect.Uint64:
		*buf = le.AppendUint64(*buf, rv.Uint())
		return Uint64, nil, nil
	case reflect.Float32:
		*buf = le.AppendUint32(*buf, math.Float32bits(float32(rv.Float())))
		return Float32, nil, nil
	case reflect.Float64:
		*buf = le.AppendUint64(*buf, math.Float64bits(rv.Float()))
		return Float64, nil, nil
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return "", nil, fmt.Errorf("%w: nil %s", ErrUnsupported, rv.Type())
		}
		return encode(rv.Elem(), buf)
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		if n == 0 {
			dtype, err := elemDType(rv.Type().Elem())
			if err != nil {
				return "", nil, err
			}
			return dtype, []int{0}, nil
		}
		var (
			dtype DType
			inner []int
		)
		for i := 0; i < n; i++ {
			dt, sh, err := encode(rv.Index(i), buf)
			if err != nil {
				return "", nil, err
			}
			if i == 0 {
				dtype, inner = dt, sh
				continue
			}
			if dt != dtype || !slices.Equal(sh, inner) {
				return "", nil, fmt.Errorf("%w: item %d is %s%v, item 0 is %s%v", ErrShapeMismatch, i, dt, sh, dtype, inner)
			}
		}
		return dtype, append([]int{n}, inner...), nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupported, rv.Type())
	}
}

func elemDType(t reflect.Type) (DType, error) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool, nil
	case reflect.Int8:
		return Int8, nil
	case reflect.Int16:
		return Int16, nil
	case reflect.Int32:
		return Int32, nil
	case reflect.Int, reflect.Int64:
		return Int64, nil
	case reflect.Uint8:
		return Uint8, nil
	case reflect.Uint16:
		return Uint16, nil
	case reflect.Uint32:
		return Uint32, nil
	case reflect.Uint, reflect.Uint64:
		return Uint64, nil
	case reflect.Float32:
		return Float32, nil
	case reflect.Float64:
		return Float64, nil
	default:
		return "", fmt.Errorf("%w: empty %s", ErrUnsupported, t)
	}
}

// Float64s decodes every element as a float64.
func (a Array) Float64s() ([]float64, error) {
	size := a.DType.ItemSize()
	if size == 0 {
		return nil, fmt.Errorf("%w: dtype %q", ErrUnsupported, a.DType)
	}
	if len(a.Data) != a.Len()*size {
		return nil, fmt.Errorf("array %s holds %d bytes, want %d", a, len(a.Data), a.Len()*size)
	}
	le := binary.LittleEndian
	out := make([]float64, a.Len())
	for i := range out {
		b := a.Data[i*size : (i+1)*size]
		switch a.DType {
		case Bool, Uint8:
			out[i] = float64(b[0])
		case Int8:
			out[i] = float64(int8(b[0]))
		case Int16:
			out[i] = float64(int16(le.Uint16(b)))
		case Uint16:
			out[i] = float64(le.Uint16(b))
		case Int32:
			out[i] = float64(int32(le.Uint32(b)))
		case Uint32:
			out[i] = float64(le.Uint32(b))
		case Int64:
			out[i] = float64(int64(le.Uint64(b)))
		case Uint64:
			out[i] = float64(le.Uint64(b))
		case Float32:
			out[i] = float64(math.Float32frombits(le.Uint32(b)))
		case Float64:
			out[i] = math.Float64frombits(le.Uint64(b))
		}
	}
	return out, nil
}
