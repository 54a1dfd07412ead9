package capability

import (
	"context"
	"fmt"
	"reflect"
)

// Outcome classifies one invocation attempt.
type Outcome int

const (
	// Accepted means the callable took the arguments and returned without error.
	Accepted Outcome = iota
	// Mismatch means the callable cannot take this shape; try the next one.
	Mismatch
	// Failed means the callable ran and reported an error.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Mismatch:
		return "mismatch"
	default:
		return "failed"
	}
}

// Attempt records one (callable, shape) trial.
type Attempt struct {
	Path    string
	Shape   Shape
	Outcome Outcome
	Err     error

	results []reflect.Value
}

// Invoker tries a fixed repertoire of shapes against a capability.
type Invoker struct {
	repertoire []Shape
}

// NewInvoker returns an Invoker over the given shapes, tried in order.
func NewInvoker(repertoire []Shape) *Invoker {
	return &Invoker{repertoire: repertoire}
}

// Invoke calls c with the first shape it accepts. A Failed attempt stops the
// search at once and returns a *CallError: another calling convention cannot
// fix an error raised by code that already ran. The returned attempts list
// every shape tried.
func (inv *Invoker) Invoke(ctx context.Context, c Capability, destination, message string) ([]Attempt, error) {
	if !c.fn.IsValid() {
		return nil, fmt.Errorf("%s: %w", c.Path, ErrNoCompatibleShape)
	}
	values := map[Arg]string{Destination: destination, Message: message}

	attempts := make([]Attempt, 0, len(inv.repertoire))
	for _, sh := range inv.repertoire {
		a := try(ctx, c, sh, values)
		attempts = append(attempts, a)
		switch a.Outcome {
		case Accepted:
			return attempts, nil
		case Failed:
			return attempts, &CallError{Path: c.Path, Shape: sh, Err: a.Err}
		}
	}
	return attempts, fmt.Errorf("%s: %w", c.Path, ErrNoCompatibleShape)
}

func try(ctx context.Context, c Capability, sh Shape, values map[Arg]string) Attempt {
	a := Attempt{Path: c.Path, Shape: sh}
	args, ok := bind(ctx, c.fn.Type(), sh, values)
	if !ok {
		a.Outcome = Mismatch
		return a
	}
	out, err := call(c.fn, args)
	if err != nil {
		a.Outcome, a.Err = Failed, err
		return a
	}
	a.Outcome, a.results = Accepted, out
	return a
}

// call runs fn and separates its trailing error from the other results.
// The trailing result counts as an error when its declared type implements
// error, so concrete types such as *APIError are caught too.
func call(fn reflect.Value, args []reflect.Value) (results []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("%w: %v", ErrCalleePanic, r)
		}
	}()
	out := fn.Call(args)
	n := len(out)
	if n == 0 || !out[n-1].Type().Implements(errorType) {
		return out, nil
	}
	if e := out[n-1]; !isNilError(e) {
		return nil, e.Interface().(error)
	}
	return out[:n-1], nil
}

// isNilError reports whether an error-typed result carries no error. A
// non-nillable error type counts as empty only at its zero value.
func isNilError(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return v.IsZero()
}

// bind builds the argument list for sh, or reports false when the signature
// cannot take it. Nothing is called here.
func bind(ctx context.Context, ft reflect.Type, sh Shape, values map[Arg]string) ([]reflect.Value, bool) {
	in, wantsContext := inputs(ft)
	var args []reflect.Value
	if wantsContext {
		if ctx == nil {
			ctx = context.Background()
		}
		args = append(args, reflect.ValueOf(&ctx).Elem())
	}

	var rest []reflect.Value
	var ok bool
	if sh.Keyword() {
		rest, ok = bindKeywords(in, ft.IsVariadic(), sh, values)
	} else {
		rest, ok = bindPositional(in, ft.IsVariadic(), sh, values)
	}
	if !ok {
		return nil, false
	}
	return append(args, rest...), true
}

func bindPositional(in []reflect.Type, variadic bool, sh Shape, values map[Arg]string) ([]reflect.Value, bool) {
	fixed := len(in)
	if variadic {
		fixed--
		if len(sh.Args) < fixed {
			return nil, false
		}
	} else if len(sh.Args) != fixed {
		return nil, false
	}

	args := make([]reflect.Value, 0, len(sh.Args))
	for i, a := range sh.Args {
		pt := in[len(in)-1]
		if i < fixed {
			pt = in[i]
		} else {
			pt = pt.Elem()
		}
		v, ok := stringValue(pt, values[a])
		if !ok {
			return nil, false
		}
		args = append(args, v)
	}
	return args, true
}

func bindKeywords(in []reflect.Type, variadic bool, sh Shape, values map[Arg]string) ([]reflect.Value, bool) {
	if len(in) != 1 || variadic {
		return nil, false
	}
	pt := in[0]

	if pt.Kind() == reflect.Map && pt.Key().Kind() == reflect.String {
		m := reflect.MakeMapWithSize(pt, len(sh.Keys))
		for i, k := range sh.Keys {
			ev, ok := stringValue(pt.Elem(), values[sh.Args[i]])
			if !ok {
				return nil, false
			}
			m.SetMapIndex(reflect.ValueOf(k).Convert(pt.Key()), ev)
		}
		return []reflect.Value{m}, true
	}

	st := pt
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, false
	}
	sv := reflect.New(st).Elem()
	used := make(map[int]struct{}, len(sh.Keys))
	for i, k := range sh.Keys {
		idx, ok := fieldIndex(st, k)
		if !ok {
			return nil, false
		}
		if _, dup := used[idx]; dup {
			return nil, false
		}
		used[idx] = struct{}{}
		fv, ok := stringValue(st.Field(idx).Type, values[sh.Args[i]])
		if !ok {
			return nil, false
		}
		sv.Field(idx).Set(fv)
	}
	if pt.Kind() == reflect.Ptr {
		return []reflect.Value{sv.Addr()}, true
	}
	return []reflect.Value{sv}, true
}

func fieldIndex(st reflect.Type, key string) (int, bool) {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.IsExported() && !f.Anonymous && fieldKey(f) == key {
			return i, true
		}
	}
	return 0, false
}

// stringValue converts s to t when t is string-kinded or an interface a
// string satisfies.
func stringValue(t reflect.Type, s string) (reflect.Value, bool) {
	sv := reflect.ValueOf(s)
	switch {
	case t.Kind() == reflect.String:
		return sv.Convert(t), true
	case t.Kind() == reflect.Interface && stringType.Implements(t):
		v := reflect.New(t).Elem()
		v.Set(sv)
		return v, true
	}
	return reflect.Value{}, false
}
