package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics when value is nil, including typed nil pointers hiding in an
// interface. Use it for collaborators a constructor cannot work without.
func NotNil(value any, what string) {
	if value == nil {
		panic(fmt.Sprintf("expected %s to be not nil", what))
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			panic(fmt.Sprintf("expected %s to be not nil", what))
		}
	}
}

func NotEmptyStr(str string, what string) {
	if str == "" {
		panic(fmt.Sprintf("expected %s to be non-empty", what))
	}
}
