// Package invoke calls arbitrary Go funcs with a call.Arguments list.
//
// The invoker is the bridge between scripted callbacks (which may have any
// func signature) and the engines, which only deal in *call.Arguments and
// (value, error) outcomes.
package invoke

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/roach88/mimic/internal/call"
)

// ErrNotCallable is returned when a callback is not a func.
var ErrNotCallable = errors.New("callback is not callable")

// Invokable is implemented by callbacks that consume an argument list
// directly, such as stubs and spies.
type Invokable interface {
	InvokeWith(args *call.Arguments) (any, error)
}

// ArgumentTypeError is returned when an argument cannot be passed to a
// callback parameter.
type ArgumentTypeError struct {
	Position int
	Want     reflect.Type
	Got      reflect.Type
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("argument %d: cannot use %v as %v", e.Position, e.Got, e.Want)
}

var errorType = reflect.TypeFor[error]()

// Invoker calls callbacks.
type Invoker struct{}

// New creates an Invoker.
func New() *Invoker {
	return &Invoker{}
}

// CallWith calls callback with the values of args. An Invokable receives
// args itself.
//
// Missing trailing parameters receive zero values and surplus arguments are
// dropped unless the callback is variadic. A trailing error result becomes
// the returned error; of the remaining results none yields nil, one yields
// that value and several yield a []any.
func (i *Invoker) CallWith(callback any, args *call.Arguments) (any, error) {
	if inv, ok := callback.(Invokable); ok {
		return inv.InvokeWith(args)
	}

	fn := reflect.ValueOf(callback)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrNotCallable, callback)
	}

	in, err := buildIn(fn.Type(), args.Values())
	if err != nil {
		return nil, err
	}
	return splitOut(fn.Type(), fn.Call(in))
}

func buildIn(typ reflect.Type, values []any) ([]reflect.Value, error) {
	fixed := typ.NumIn()
	if typ.IsVariadic() {
		fixed--
	}

	in := make([]reflect.Value, 0, len(values))
	for p := 0; p < fixed; p++ {
		if p >= len(values) {
			in = append(in, reflect.Zero(typ.In(p)))
			continue
		}
		v, err := convert(p, values[p], typ.In(p))
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	if typ.IsVariadic() {
		elem := typ.In(fixed).Elem()
		for p := fixed; p < len(values); p++ {
			v, err := convert(p, values[p], elem)
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
	}
	return in, nil
}

func convert(position int, value any, want reflect.Type) (reflect.Value, error) {
	if value == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, &ArgumentTypeError{Position: position, Want: want}
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(want.Kind()) && representable(v, want) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, &ArgumentTypeError{Position: position, Want: want, Got: v.Type()}
}

// representable reports whether the numeric v converts to want without
// changing its value.
func representable(v reflect.Value, want reflect.Type) bool {
	target := reflect.Zero(want)
	switch {
	case v.CanInt():
		n := v.Int()
		switch {
		case target.CanInt():
			return !target.OverflowInt(n)
		case target.CanUint():
			return n >= 0 && !target.OverflowUint(uint64(n))
		}
		return true
	case v.CanUint():
		u := v.Uint()
		switch {
		case target.CanInt():
			return u <= math.MaxInt64 && !target.OverflowInt(int64(u))
		case target.CanUint():
			return !target.OverflowUint(u)
		}
		return true
	}

	f := v.Float()
	switch {
	case target.CanInt():
		return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 && !target.OverflowInt(int64(f))
	case target.CanUint():
		return f == math.Trunc(f) && f >= 0 && f < math.MaxUint64 && !target.OverflowUint(uint64(f))
	}
	return !target.OverflowFloat(f)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func splitOut(typ reflect.Type, out []reflect.Value) (any, error) {
	var err error
	if n := typ.NumOut(); n > 0 && typ.Out(n-1) == errorType {
		if e := out[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]any, len(out))
		for i, o := range out {
			values[i] = o.Interface()
		}
		return values, err
	}
}
