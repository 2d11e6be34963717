package assert

import "reflect"

// NotCircular 标记单例访问器，提醒不要在包init期间相互调用形成环。
// 运行期为no-op，仅用于审阅时定位调用点。
func NotCircular() {}

// NotNil panics when v is nil, including typed nil pointers behind an interface.
func NotNil(v interface{}) {
	if v == nil {
		panic("assert: unexpected nil")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic("assert: unexpected nil")
		}
	}
}
