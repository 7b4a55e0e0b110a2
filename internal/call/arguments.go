package call

import (
	"fmt"
	"strings"
)

// Argument is one input to a call. Name is empty for positional arguments.
type Argument struct {
	Name  string
	Value any
}

// Named creates a named Argument.
func Named(name string, value any) Argument {
	return Argument{Name: name, Value: value}
}

// slot is a mutable cell holding one argument value.
type slot struct {
	name  string
	value any
}

// Arguments is an ordered snapshot of call inputs where each slot may also be
// addressed by name.
//
// Slots are shared cells: Set and SetNamed mutate in place, so every holder
// of the same *Arguments observes the write. Use Copy to detach.
//
// A nil *Arguments behaves as an empty argument list for reads.
type Arguments struct {
	slots []*slot
	names map[string]int
}

// NewArguments creates positional arguments from values.
func NewArguments(values ...any) *Arguments {
	a := &Arguments{slots: make([]*slot, len(values))}
	for i, v := range values {
		a.slots[i] = &slot{value: v}
	}
	return a
}

// NewArgumentsFrom creates arguments from positional and named entries.
// A repeated name overwrites the value of the slot that first used it.
func NewArgumentsFrom(args ...Argument) *Arguments {
	a := &Arguments{slots: make([]*slot, 0, len(args))}
	for _, arg := range args {
		a.add(arg.Name, arg.Value)
	}
	return a
}

func (a *Arguments) add(name string, value any) {
	if name != "" {
		if a.names == nil {
			a.names = make(map[string]int)
		}
		if i, ok := a.names[name]; ok {
			a.slots[i].value = value
			return
		}
		a.names[name] = len(a.slots)
	}
	a.slots = append(a.slots, &slot{name: name, value: value})
}

// Len returns the number of arguments.
func (a *Arguments) Len() int {
	if a == nil {
		return 0
	}
	return len(a.slots)
}

// resolve maps a position to a slot index. Negative positions count from the
// end. Returns -1 when out of range.
func (a *Arguments) resolve(position int) int {
	n := a.Len()
	if position < 0 {
		position += n
	}
	if position < 0 || position >= n {
		return -1
	}
	return position
}

// Has reports whether an argument exists at position.
func (a *Arguments) Has(position int) bool {
	return a.resolve(position) >= 0
}

// HasNamed reports whether a named argument exists.
func (a *Arguments) HasNamed(name string) bool {
	if a == nil {
		return false
	}
	_, ok := a.names[name]
	return ok
}

// Get returns the value at position. Negative positions count from the end.
func (a *Arguments) Get(position int) (any, error) {
	i := a.resolve(position)
	if i < 0 {
		return nil, &UndefinedArgumentError{Position: position}
	}
	return a.slots[i].value, nil
}

// GetNamed returns the value of a named argument.
func (a *Arguments) GetNamed(name string) (any, error) {
	if !a.HasNamed(name) {
		return nil, &UndefinedArgumentError{Name: name}
	}
	return a.slots[a.names[name]].value, nil
}

// Set replaces the value at position in place.
func (a *Arguments) Set(position int, value any) error {
	i := a.resolve(position)
	if i < 0 {
		return &UndefinedArgumentError{Position: position}
	}
	a.slots[i].value = value
	return nil
}

// SetNamed replaces a named argument in place, appending it if it does not
// exist yet.
func (a *Arguments) SetNamed(name string, value any) {
	a.add(name, value)
}

// Name returns the name of the argument at position, or "" if it is
// positional or undefined.
func (a *Arguments) Name(position int) string {
	i := a.resolve(position)
	if i < 0 {
		return ""
	}
	return a.slots[i].name
}

// Values returns the argument values in order.
func (a *Arguments) Values() []any {
	values := make([]any, a.Len())
	for i := range values {
		values[i] = a.slots[i].value
	}
	return values
}

// All returns the arguments in order, including their names.
func (a *Arguments) All() []Argument {
	all := make([]Argument, a.Len())
	for i := range all {
		all[i] = Argument{Name: a.slots[i].name, Value: a.slots[i].value}
	}
	return all
}

// Copy returns arguments backed by new cells.
func (a *Arguments) Copy() *Arguments {
	return NewArgumentsFrom(a.All()...)
}

// String renders the arguments as a parenthesized list.
func (a *Arguments) String() string {
	parts := make([]string, 0, a.Len())
	for _, arg := range a.All() {
		if arg.Name != "" {
			parts = append(parts, fmt.Sprintf("%s: %#v", arg.Name, arg.Value))
			continue
		}
		parts = append(parts, fmt.Sprintf("%#v", arg.Value))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
