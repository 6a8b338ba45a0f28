package benchmarks

import (
	"context"
	"testing"

	"github.com/zoobzio/tokenz"
)

func BenchmarkTriggerToken_RegisterAndTrigger(b *testing.B) {
	fn := func(any) {}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tok := tokenz.NewTriggerToken()
		tok.RegisterCallback(fn, nil)
		tok.Trigger()
	}
}

func BenchmarkCompositeToken_Register(b *testing.B) {
	children := make([]tokenz.Token, 8)
	for i := range children {
		children[i] = tokenz.NewTriggerToken()
	}
	composite := tokenz.NewCompositeToken(children...)
	fn := func(any) {}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		composite.RegisterCallback(fn, nil).Dispose()
	}
}

func BenchmarkBuilder_ProduceComposite(b *testing.B) {
	builder := tokenz.NewBuilder()
	for i := 0; i < 4; i++ {
		builder.IncludeTrigger()
	}
	producer, lifetime := builder.Build()
	defer lifetime.Dispose()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		producer.Produce()
	}
}

func BenchmarkWaitOnce_Signaled(b *testing.B) {
	builder := tokenz.NewBuilder()
	trigger := builder.IncludeTrigger()
	producer, lifetime := builder.Build()
	defer lifetime.Dispose()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tok := producer.Produce()
		trigger()
		if err := tokenz.Wait(ctx, tok); err != nil {
			b.Fatalf("Wait() error = %v", err)
		}
	}
}
