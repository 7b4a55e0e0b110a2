package stub

import (
	"reflect"

	"github.com/roach88/mimic/internal/call"
)

// Self is the marker type for a callback's first parameter. A callback
// whose first parameter is a Self receives the stub's self value there
// unless its CallRequest says otherwise.
type Self struct {
	Value any
}

var selfType = reflect.TypeFor[Self]()

// CallRequest is a recipe for a deferred invocation. The final arguments
// are assembled as:
//
//	[self]  if PrefixSelf
//	[args]  the incoming *call.Arguments, if SuffixArgumentsObject
//	a, b... the incoming argument values, if SuffixArguments
//	Extra...
//
// SuffixArgumentsObject wins when both suffix flags are set. A nil
// PrefixSelf is decided by the callback's signature: it prefixes exactly
// when the first parameter is a Self.
type CallRequest struct {
	Callback              any
	Extra                 []any
	PrefixSelf            *bool
	SuffixArgumentsObject bool
	SuffixArguments       bool
}

// Prefix returns a PrefixSelf value.
func Prefix(v bool) *bool { return &v }

// prefixesSelf reports whether the request passes self and whether the
// callback wants it wrapped in Self.
func (r CallRequest) prefixesSelf() (prefix, wrapped bool) {
	wrapped = takesSelf(r.Callback)
	if r.PrefixSelf == nil {
		return wrapped, wrapped
	}
	return *r.PrefixSelf, wrapped
}

// arguments assembles the final argument list for the callback.
func (r CallRequest) arguments(self any, incoming *call.Arguments) *call.Arguments {
	values := make([]any, 0, 1+incoming.Len()+len(r.Extra))
	if prefix, wrapped := r.prefixesSelf(); prefix {
		if wrapped {
			values = append(values, Self{Value: self})
		} else {
			values = append(values, self)
		}
	}
	switch {
	case r.SuffixArgumentsObject:
		values = append(values, incoming)
	case r.SuffixArguments:
		values = append(values, incoming.Values()...)
	}
	values = append(values, r.Extra...)
	return call.NewArguments(values...)
}

func takesSelf(callback any) bool {
	t := reflect.TypeOf(callback)
	return t != nil && t.Kind() == reflect.Func && t.NumIn() > 0 && t.In(0) == selfType
}

// withArguments builds a request whose callback reads the incoming
// arguments object.
func withArguments(fn func(args *call.Arguments) (any, error)) CallRequest {
	return CallRequest{Callback: fn, PrefixSelf: Prefix(false), SuffixArgumentsObject: true}
}

// constant builds a request that ignores its arguments.
func constant(value any, err error) CallRequest {
	return CallRequest{
		Callback:   func() (any, error) { return value, err },
		PrefixSelf: Prefix(false),
	}
}
