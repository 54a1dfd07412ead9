package capability

import (
	"context"
	"reflect"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// This file is the only place that inspects values reflectively. Everything
// above it works on member and Capability records.

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	typeType    = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	stringType  = reflect.TypeOf("")
)

// member is one public named member of a value.
type member struct {
	name     string
	callable bool
	fn       reflect.Value
	resolve  func() (reflect.Value, bool)
}

// members lists the public members of v sorted by name.
func members(v reflect.Value, accessors bool) []member {
	v = unwrap(v)
	if !v.IsValid() {
		return nil
	}

	out := methodMembers(v, accessors)
	base := v
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.Struct:
		out = append(out, fieldMembers(base)...)
	case reflect.Map:
		out = append(out, mapMembers(base)...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func methodMembers(v reflect.Value, accessors bool) []member {
	if v.Kind() != reflect.Ptr && v.CanAddr() {
		v = v.Addr()
	}
	t := v.Type()
	out := make([]member, 0, v.NumMethod())
	for i := 0; i < v.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		mv := v.Method(i)
		name := memberName(m.Name)
		if mt := mv.Type(); isAccessor(mt) {
			// Zero-argument methods fit no shape, so an accessor that is not
			// safe to resolve is left out entirely and never called.
			if accessors && resolvable(mt.Out(0)) && !isAction(name) {
				out = append(out, member{name: name, resolve: accessor(mv)})
			}
			continue
		}
		out = append(out, member{name: name, callable: true, fn: mv})
	}
	return out
}

func fieldMembers(s reflect.Value) []member {
	t := s.Type()
	out := make([]member, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fv := unwrap(s.Field(i))
		if !fv.IsValid() {
			continue
		}
		name := memberName(f.Name)
		if fv.Kind() == reflect.Func {
			if fv.IsNil() {
				continue
			}
			out = append(out, member{name: name, callable: true, fn: fv})
			continue
		}
		out = append(out, member{name: name, resolve: constant(fv)})
	}
	return out
}

func mapMembers(m reflect.Value) []member {
	if m.Type().Key().Kind() != reflect.String || m.IsNil() {
		return nil
	}
	keys := m.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := make([]member, 0, len(keys))
	for _, k := range keys {
		key := k.String()
		if key == "" || strings.HasPrefix(key, "_") {
			continue
		}
		ev := unwrap(m.MapIndex(k))
		if !ev.IsValid() {
			continue
		}
		name := memberName(key)
		if ev.Kind() == reflect.Func {
			if ev.IsNil() {
				continue
			}
			out = append(out, member{name: name, callable: true, fn: ev})
			continue
		}
		out = append(out, member{name: name, resolve: constant(ev)})
	}
	return out
}

// isAccessor reports whether a method type looks like a property getter:
// no arguments and exactly one non-error result.
func isAccessor(mt reflect.Type) bool {
	return mt.NumIn() == 0 && mt.NumOut() == 1 && !mt.Out(0).Implements(errorType)
}

// resolvable reports whether an accessor's declared result could be an
// object worth traversing. Getters of scalars are never called.
func resolvable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Struct, reflect.Interface:
		return !t.Implements(typeType)
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	}
	return false
}

// actionVerbs lead the names of methods that do something rather than
// return a sub-object, e.g. SendNow or CreateConversation.
var actionVerbs = map[string]struct{}{
	"send": {}, "text": {}, "create": {}, "open": {}, "start": {},
	"new": {}, "post": {}, "deliver": {}, "dispatch": {}, "push": {},
}

// isAction reports whether a zero-argument method named like a sender or
// a conversation maker starts with a verb. Such methods are never resolved
// as accessors; nouns like Messages or Conversations still are.
func isAction(name string) bool {
	if !SenderLexicon.Match(name) && !MakerLexicon.Match(name) {
		return false
	}
	verb, _, _ := strings.Cut(name, "_")
	_, ok := actionVerbs[verb]
	return ok
}

func accessor(mv reflect.Value) func() (reflect.Value, bool) {
	return func() (v reflect.Value, ok bool) {
		defer func() {
			if recover() != nil {
				v, ok = reflect.Value{}, false
			}
		}()
		out := mv.Call(nil)
		v = unwrap(out[0])
		return v, v.IsValid()
	}
}

func constant(v reflect.Value) func() (reflect.Value, bool) {
	return func() (reflect.Value, bool) {
		v := unwrap(v)
		return v, v.IsValid()
	}
}

func memberName(name string) string {
	return strcase.ToSnake(name)
}

// unwrap strips interface wrappers; nil interfaces become the zero Value.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// isObject reports whether v can own named members worth traversing.
func isObject(v reflect.Value) bool {
	v = unwrap(v)
	if !v.IsValid() || v.Type().Implements(typeType) {
		return false
	}
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return false
		}
		switch v.Elem().Kind() {
		case reflect.Struct, reflect.Map:
			return true
		}
		return v.NumMethod() > 0
	case reflect.Map:
		return !v.IsNil() && v.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	}
	return false
}

// box makes struct values addressable so pointer-receiver methods are visible.
func box(v reflect.Value) reflect.Value {
	v = unwrap(v)
	if v.Kind() == reflect.Struct && !v.CanAddr() {
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p
	}
	return v
}

type identity struct {
	ptr uintptr
	typ reflect.Type
}

// identityOf keys an object by address and type. Values without a stable
// address have no identity.
func identityOf(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Ptr:
		return identity{ptr: v.Pointer(), typ: v.Type().Elem()}, true
	case reflect.Map:
		return identity{ptr: v.Pointer(), typ: v.Type()}, true
	case reflect.Struct:
		if v.CanAddr() {
			return identity{ptr: v.UnsafeAddr(), typ: v.Type()}, true
		}
	}
	return identity{}, false
}

func interfaceOf(v reflect.Value) any {
	if v.IsValid() && v.CanInterface() {
		return v.Interface()
	}
	return nil
}

// inputs returns the parameter types of ft after an optional leading context.
func inputs(ft reflect.Type) (in []reflect.Type, wantsContext bool) {
	start := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		start, wantsContext = 1, true
	}
	for i := start; i < ft.NumIn(); i++ {
		in = append(in, ft.In(i))
	}
	return in, wantsContext
}

// introspect derives keyword names and type names for a callable. Only a
// single struct parameter carries names; plain Go parameters do not.
func introspect(ft reflect.Type) (params, types []string) {
	in, _ := inputs(ft)
	types = make([]string, 0, len(in))
	for i, t := range in {
		if ft.IsVariadic() && i == len(in)-1 {
			types = append(types, "..."+t.Elem().String())
			continue
		}
		types = append(types, t.String())
	}

	params = []string{}
	if len(in) != 1 || ft.IsVariadic() {
		return params, types
	}
	st := in[0]
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return params, types
	}
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.IsExported() && !f.Anonymous {
			params = append(params, fieldKey(f))
		}
	}
	return params, types
}

// fieldKey is the keyword a struct field answers to.
func fieldKey(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return strcase.ToSnake(f.Name)
}

func newCapability(path string, depth int, fn reflect.Value) Capability {
	params, types := introspect(fn.Type())
	return Capability{
		Path:       path,
		Params:     params,
		ParamTypes: types,
		Depth:      depth,
		fn:         fn,
	}
}
