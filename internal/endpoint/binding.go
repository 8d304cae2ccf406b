package endpoint

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"nebula/internal/objects"
)

var (
	ErrNoHandle    = errors.New("endpoint has no handle")
	ErrNotCallable = errors.New("handle is not callable")
)

var (
	contextType = reflect.TypeFor[context.Context]()
	userType    = reflect.TypeFor[*objects.User]()
	errorType   = reflect.TypeFor[error]()
)

// Binding adapts a handler function to a uniform call. Accepted shapes:
//
//	func(ctx context.Context, user *objects.User) (R, error)
//	func(ctx context.Context, req Req, user *objects.User) (R, error)
//
// Req is a struct or a pointer to one. The router decodes the request body
// into a fresh Req before each call.
type Binding struct {
	fn      reflect.Value
	request reflect.Type
	result  reflect.Type
}

// Bind validates handle and builds its Binding.
func Bind(handle any) (*Binding, error) {
	if handle == nil {
		return nil, ErrNoHandle
	}
	fn := reflect.ValueOf(handle)
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrNotCallable, handle)
	}
	if fn.IsNil() {
		return nil, ErrNoHandle
	}
	t := fn.Type()
	if t.IsVariadic() || t.NumOut() != 2 || t.Out(1) != errorType {
		return nil, fmt.Errorf("%w: %s must return (result, error)", ErrNotCallable, t)
	}

	b := &Binding{fn: fn, result: t.Out(0)}
	switch t.NumIn() {
	case 2:
	case 3:
		req := t.In(1)
		if req.Kind() != reflect.Struct && (req.Kind() != reflect.Pointer || req.Elem().Kind() != reflect.Struct) {
			return nil, fmt.Errorf("%w: request parameter of %s must be a struct", ErrNotCallable, t)
		}
		b.request = req
	default:
		return nil, fmt.Errorf("%w: %s has %d parameters", ErrNotCallable, t, t.NumIn())
	}
	if t.In(0) != contextType || t.In(t.NumIn()-1) != userType {
		return nil, fmt.Errorf("%w: %s must take (context.Context, [request,] *objects.User)", ErrNotCallable, t)
	}
	return b, nil
}

// RequestType is nil for handlers without a request parameter.
func (b *Binding) RequestType() reflect.Type { return b.request }

// ResponseType returns the declared result type, or nil when it is an
// interface type and therefore carries no shape.
func (b *Binding) ResponseType() reflect.Type {
	if b.result.Kind() == reflect.Interface {
		return nil
	}
	return b.result
}

// NewRequest returns a pointer to a zero request value suitable for
// decoding into, or nil when the handler takes no request.
func (b *Binding) NewRequest() any {
	if b.request == nil {
		return nil
	}
	if b.request.Kind() == reflect.Pointer {
		return reflect.New(b.request.Elem()).Interface()
	}
	return reflect.New(b.request).Interface()
}

// Call invokes the handler. req must come from NewRequest.
func (b *Binding) Call(ctx context.Context, req any, user *objects.User) (any, error) {
	args := []reflect.Value{reflect.ValueOf(ctx)}
	if b.request != nil {
		if req == nil {
			req = b.NewRequest()
		}
		rv := reflect.ValueOf(req)
		if rv.Type() != reflect.PointerTo(b.request) && rv.Type() != b.request {
			return nil, fmt.Errorf("request of type %T does not match %s", req, b.request)
		}
		if b.request.Kind() == reflect.Struct && rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		args = append(args, rv)
	}
	args = append(args, reflect.ValueOf(&user).Elem())

	out := b.fn.Call(args)
	var err error
	if e := out[1].Interface(); e != nil {
		err = e.(error)
	}
	return out[0].Interface(), err
}

func (b *Binding) String() string { return b.fn.Type().String() }
