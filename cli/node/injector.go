// This file contains the implementation of a dependency injector using
// reflection.

package node

import (
	"reflect"

	"golang.org/x/xerrors"
)

// ReflectInjector is a dependency injector that uses reflection to resolve
// specific interfaces.
//
// - implements node.Injector
type reflectInjector struct {
	types  []reflect.Type
	mapper map[reflect.Type]interface{}
}

// NewInjector returns a empty injector.
func NewInjector() Injector {
	return &reflectInjector{
		mapper: make(map[reflect.Type]interface{}),
	}
}

// Resolve implements node.Injector. It populates the given interface with the
// dependency of the same type, or with the first compatible dependency in
// order of injection.
func (inj *reflectInjector) Resolve(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	if !rv.Elem().IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", rv)
	}

	target := rv.Elem().Type()

	value, found := inj.mapper[target]
	if found {
		rv.Elem().Set(reflect.ValueOf(value))
		return nil
	}

	for _, typ := range inj.types {
		if typ.AssignableTo(target) {
			rv.Elem().Set(reflect.ValueOf(inj.mapper[typ]))
			return nil
		}
	}

	return xerrors.Errorf("couldn't find dependency for '%v'", target)
}

// Inject implements node.Injector. It injects the dependency to be available
// later on. A dependency of the same type replaces the previous one.
func (inj *reflectInjector) Inject(v interface{}) {
	key := reflect.TypeOf(v)

	_, found := inj.mapper[key]
	if !found {
		inj.types = append(inj.types, key)
	}

	inj.mapper[key] = v
}
