package fncache

import (
	"reflect"
	"runtime"
	"strings"
)

// funcName returns the fully qualified name of fn, e.g.
// "github.com/acme/app/users.Lookup". Method values lose the "-fm" suffix the
// runtime gives them.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return strings.TrimSuffix(f.Name(), "-fm")
}
