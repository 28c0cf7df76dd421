package loader

import (
	"fmt"
	"plugin"
	"reflect"
)

// handlerSymbol is the exported name a plugin module must provide. It may be a function
// or a package-level variable holding one.
const handlerSymbol = "Handler"

func openPlugin(path string) (any, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(handlerSymbol)
	if err != nil {
		return nil, err
	}
	return derefSymbol(sym)
}

// derefSymbol unwraps variables: Lookup returns a pointer for exported variables and
// the value itself for exported functions.
func derefSymbol(sym any) (any, error) {
	v := reflect.ValueOf(sym)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("symbol %s is nil", handlerSymbol)
		}
		elem := v.Elem()
		if elem.Kind() == reflect.Func || elem.Kind() == reflect.Interface {
			return elem.Interface(), nil
		}
	}
	return sym, nil
}
