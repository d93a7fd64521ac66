package nasc

import (
	"testing"
)

type BenchLogger interface {
	Log(msg string)
}

type BenchConsoleLogger struct {
	prefix string
}

func (l *BenchConsoleLogger) Log(msg string) {}

type BenchDatabase interface {
	Query(q string) string
}

type BenchPostgresDB struct {
	dsn string
}

func (db *BenchPostgresDB) Query(q string) string {
	return q
}

type BenchService interface {
	Process(data string) string
}

type BenchUserService struct {
	Logger BenchLogger
	DB     BenchDatabase
}

func (s *BenchUserService) Process(data string) string {
	return s.DB.Query(data)
}

func NewBenchUserService(logger BenchLogger, db BenchDatabase) *BenchUserService {
	return &BenchUserService{Logger: logger, DB: db}
}

func benchInjector(b *testing.B, fn func(binder *Binder) error, opts ...Option) *Injector {
	b.Helper()
	injector, err := New(bindings(func(binder *Binder) error {
		if err := binder.Bind(TargetOf[BenchLogger](), To[*BenchConsoleLogger]()); err != nil {
			return err
		}
		if err := binder.Bind(TargetOf[BenchDatabase](), To[*BenchPostgresDB]()); err != nil {
			return err
		}
		return fn(binder)
	}), opts...)
	if err != nil {
		b.Fatal(err)
	}
	return injector
}

func BenchmarkSingletonResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error {
		return binder.Bind(TargetOf[BenchService](), To[*BenchUserService]())
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MustGet[BenchService](injector)
	}
}

func BenchmarkPerLookupResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error {
		return binder.Bind(TargetOf[BenchService](), To[*BenchUserService](), InScope(PerLookupScope{}))
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MustGet[BenchService](injector)
	}
}

func BenchmarkConstructorResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error {
		return binder.Bind(TargetOf[BenchService](), ToConstructor(NewBenchUserService), InScope(PerLookupScope{}))
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MustGet[BenchService](injector)
	}
}

func BenchmarkJITResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error { return nil },
		WithAutoBindings(true), WithDefaultScope(PerLookupScope{}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MustGet[*BenchUserService](injector)
	}
}

func BenchmarkConcurrentResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error {
		return binder.Bind(TargetOf[BenchService](), To[*BenchUserService]())
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = MustGet[BenchService](injector)
		}
	})
}

func BenchmarkThreadScopeResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error {
		return binder.Bind(TargetOf[BenchService](), To[*BenchUserService](), InScope(ThreadScope{}))
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = MustGet[BenchService](injector)
		}
	})
}

func BenchmarkReflectionCache(b *testing.B) {
	cache := newReflectionCache()
	typ := typeOf[*BenchUserService]()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.getFieldInfo(typ)
	}
}

func BenchmarkMultiBindResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error {
		return binder.MultiBindInScope(TargetOf[BenchLogger]("all"), PerLookupScope{},
			Item[*BenchConsoleLogger](),
			ItemInstance(&BenchConsoleLogger{prefix: "static"}),
		)
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MustGet[[]BenchLogger](injector, "all")
	}
}

func BenchmarkNamedResolution(b *testing.B) {
	injector := benchInjector(b, func(binder *Binder) error {
		return binder.Bind(TargetOf[BenchDatabase]("replica"), To[*BenchPostgresDB]())
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MustGet[BenchDatabase](injector, "replica")
	}
}
