package tokenz

import (
	"context"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/capitan"
)

// validate is the shared validator instance.
var validate = validator.New()

// WatchDecoded wraps w so that only meaningful changes get through. Every
// payload after the first is decoded into a T with codec and, if T is a
// struct, validated against its `validate` tags. Payloads that fail are
// dropped and reported as WatcherDecodeFailed. A valid payload is
// forwarded when shouldTrigger(previous, current) holds; a nil
// shouldTrigger forwards every valid payload.
//
// The first payload is always forwarded, since it is the source's current
// contents, and becomes the baseline if it is valid.
//
// Example:
//
//	type Config struct {
//	    Port int `yaml:"port" validate:"min=1,max=65535"`
//	}
//
//	w := tokenz.WatchDecoded[Config](tokenz.NewFileWatcher("config.yaml"),
//	    tokenz.YAMLCodec{},
//	    func(prev, curr Config) bool { return prev.Port != curr.Port },
//	)
//	producer, lifetime := tokenz.NewBuilder().IncludeWatcher(w).Build()
func WatchDecoded[T any](w Watcher, codec Codec, shouldTrigger func(prev, curr T) bool) Watcher {
	if w == nil {
		panic("tokenz: nil watcher")
	}
	if codec == nil {
		panic("tokenz: nil codec")
	}

	return WatcherFunc(func(ctx context.Context) (<-chan []byte, error) {
		in, err := w.Watch(ctx)
		if err != nil {
			return nil, err
		}

		out := make(chan []byte)
		go func() {
			defer close(out)

			var prev T
			hasPrev, first := false, true
			for {
				var data []byte
				select {
				case <-ctx.Done():
					return
				case v, ok := <-in:
					if !ok {
						return
					}
					data = v
				}

				curr, err := decode[T](codec, data)
				if err != nil {
					if !first {
						capitan.Emit(ctx, WatcherDecodeFailed,
							KeyWatcherType.Field(codec.ContentType()),
							KeyError.Field(err.Error()),
						)
						continue
					}
				}

				forward := first || !hasPrev || shouldTrigger == nil || shouldTrigger(prev, curr)
				if err == nil {
					prev, hasPrev = curr, true
				}
				first = false
				if forward && !send(ctx, out, data) {
					return
				}
			}
		}()
		return out, nil
	})
}

func decode[T any](codec Codec, data []byte) (T, error) {
	var v T
	if err := codec.Decode(data, &v); err != nil {
		return v, fmt.Errorf("decode failed: %w", err)
	}
	if isStruct(v) {
		if err := validate.Struct(v); err != nil {
			return v, fmt.Errorf("validation failed: %w", err)
		}
	}
	return v, nil
}

// isStruct reports whether v is a struct or a non-nil pointer to one.
func isStruct(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}
