package engine

import (
	"errors"
	"unsafe"
)

// OP names a built-in associative, commutative combine operation.
type OP int

const (
	SUM OP = iota
	MIN
	MAX
	PROD
)

var opNames = map[OP]string{
	SUM:  "SUM",
	MIN:  "MIN",
	MAX:  "MAX",
	PROD: "PROD",
}

func (o OP) String() string {
	return opNames[o]
}

var errInvalidOp = errors.New("engine: invalid op")

func ParseOp(s string) (OP, error) {
	for k, v := range opNames {
		if v == s {
			return k, nil
		}
	}
	return 0, errInvalidOp
}

// Number is the set of element types a built-in Reducer can combine.
type Number interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

func combine[T Number](a, b T, op OP) T {
	switch op {
	case SUM:
		return a + b
	case PROD:
		return a * b
	case MIN:
		if a < b {
			return a
		}
		return b
	case MAX:
		if a > b {
			return a
		}
		return b
	default:
		return a
	}
}

// asSlice reinterprets a byte buffer known to hold nelem contiguous values
// of type T as a []T, without copying. The buffer must be at least
// nelem*sizeof(T) bytes, which every caller in this package guarantees by
// construction: ring-buffer and payload sizes are always rounded to whole
// elements (see ComputeBufferSize).
func asSlice[T Number](data []byte, nelem int) []T {
	if nelem == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), nelem)
}

// Reduce computes dst[i] = op(dst[i], src[i]) for i in [0, nelem) in place,
// for the built-in numeric types, monomorphized per type via Go generics
// rather than dispatched on dtype at runtime.
func Reduce[T Number](op OP) Reducer {
	return func(src, dst []byte, nelem int, dtype DataType) {
		s := asSlice[T](src, nelem)
		d := asSlice[T](dst, nelem)
		for i := 0; i < nelem; i++ {
			d[i] = combine(d[i], s[i], op)
		}
	}
}

// Reducer is the byte-level reduce function the Allreduce Engine actually
// calls: dst[i] = reduce(dst[i], src[i]) for i in [0, nelem). Implementations
// must be associative and commutative for the collective's result to be
// deterministic across arbitrary tree shapes.
type Reducer func(src, dst []byte, nelem int, dtype DataType)

// ReducerFor builds the built-in Reducer for op over dtype. It panics on an
// unsupported combination: the set of (op, dtype) pairs is fixed at compile
// time, so a caller requesting an invalid one is a programming error, not a
// runtime condition to recover from.
func ReducerFor(op OP, dtype DataType) Reducer {
	if _, ok := opNames[op]; !ok {
		panic("engine: unsupported op for built-in reducer")
	}
	switch dtype {
	case U8:
		return Reduce[uint8](op)
	case U16:
		return Reduce[uint16](op)
	case U32:
		return Reduce[uint32](op)
	case U64:
		return Reduce[uint64](op)
	case I8:
		return Reduce[int8](op)
	case I16:
		return Reduce[int16](op)
	case I32:
		return Reduce[int32](op)
	case I64:
		return Reduce[int64](op)
	case F32:
		return Reduce[float32](op)
	case F64:
		return Reduce[float64](op)
	default:
		panic("engine: unsupported dtype for built-in reducer")
	}
}
