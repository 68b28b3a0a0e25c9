package ref

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// TypeOptions 通过命名空间和类型名定位一个已注册的构造函数
// Options 会原样传给构造函数，若实现了 Convertable 则先转换为构造函数的参数类型
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

// Convertable 可以把自身转换为任意结构体的配置数据，cfg 包解析出的节点实现了该接口
type Convertable interface {
	ConvertTo(object any) error
}

type factory struct {
	fn           any
	value        reflect.Value
	hasOptions   bool
	returnsError bool
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func newFactory(fn any) (*factory, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, errors.Errorf("constructor must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, errors.Errorf("constructor must have 0 or 1 input parameters, got %d", ft.NumIn())
	}
	if ft.NumOut() != 1 && ft.NumOut() != 2 {
		return nil, errors.Errorf("constructor must have 1 or 2 return values, got %d", ft.NumOut())
	}
	if ft.NumOut() == 2 && !ft.Out(1).Implements(errorType) {
		return nil, errors.New("second return value must be error type")
	}

	return &factory{
		fn:           fn,
		value:        fv,
		hasOptions:   ft.NumIn() == 1,
		returnsError: ft.NumOut() == 2,
	}, nil
}

func (f *factory) call(options any) (any, error) {
	var args []reflect.Value
	if f.hasOptions {
		arg, err := f.prepare(options)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	out := f.value.Call(args)
	if f.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// prepare 把 options 转换为构造函数的参数
func (f *factory) prepare(options any) (reflect.Value, error) {
	paramType := f.value.Type().In(0)

	if options == nil {
		// 指针参数允许零值，构造函数自行处理默认值
		if paramType.Kind() == reflect.Ptr {
			return reflect.New(paramType.Elem()), nil
		}
		return reflect.Zero(paramType), nil
	}

	if c, ok := options.(Convertable); ok {
		target := paramType
		if target.Kind() == reflect.Ptr {
			target = target.Elem()
		}
		ptr := reflect.New(target)
		if err := c.ConvertTo(ptr.Interface()); err != nil {
			return reflect.Value{}, errors.Wrapf(err, "convert options to %v failed", paramType)
		}
		if paramType.Kind() == reflect.Ptr {
			return ptr, nil
		}
		return ptr.Elem(), nil
	}

	ov := reflect.ValueOf(options)
	if !ov.Type().AssignableTo(paramType) {
		return reflect.Value{}, errors.Errorf("options type %T is not assignable to %v", options, paramType)
	}
	return ov, nil
}

var factories sync.Map

func key(namespace, typ string) string {
	return namespace + ":" + typ
}

// Register 注册构造函数，重复注册同一个函数会被忽略
func Register(namespace string, typ string, fn any) error {
	if existing, ok := factories.Load(key(namespace, typ)); ok {
		if reflect.ValueOf(existing.(*factory).fn).Pointer() == reflect.ValueOf(fn).Pointer() {
			return nil
		}
		return errors.Errorf("constructor for %s:%s already registered with different function", namespace, typ)
	}

	f, err := newFactory(fn)
	if err != nil {
		return errors.WithMessagef(err, "register %s:%s failed", namespace, typ)
	}
	factories.Store(key(namespace, typ), f)
	return nil
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

// RegisterT 使用 T 的包路径和类型名作为命名空间和类型名注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := typeName[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

func New(namespace string, typ string, options any) (any, error) {
	value, ok := factories.Load(key(namespace, typ))
	if !ok {
		return nil, errors.Errorf("constructor not found for %s:%s", namespace, typ)
	}
	return value.(*factory).call(options)
}

// NewWithOptions 等价于 New(options.Namespace, options.Type, options.Options)
func NewWithOptions(options *TypeOptions) (any, error) {
	if options == nil {
		return nil, errors.New("type options is nil")
	}
	return New(options.Namespace, options.Type, options.Options)
}

func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := typeName[T]()
	if err != nil {
		return zero, err
	}

	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}
	result, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("created object %T is not of type %T", obj, zero)
	}
	return result, nil
}

func typeName[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", errors.Errorf("cannot determine package path or type name for %v", t)
	}
	return t.PkgPath(), t.Name(), nil
}
