package app

import (
	"context"
	"testing"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
	"github.com/awmpietro/scenario-simulator/internal/scenario/cache"
)

const benchPlanDOT = `digraph Migration {
  backup    [cost=2000, duration="4h", probability=0.98]
  provision [cost=25000, duration="2d", probability=0.9, effects="budget_pressure"]
  migrate   [cost=8000, duration=24, probability=0.85]
  verify    [cost=1000, duration="8h", probability=0.95]
  backup -> migrate
  provision -> migrate
  migrate -> verify
}`

func benchmarkService() *Service {
	cfg := scenario.DefaultConfig()
	cfg.Budget = -1
	return NewService(scenario.NewCompiler(), scenario.NewSimulator(cfg), cache.NewInMemory(1024), nil)
}

func BenchmarkServiceSimulateCached(b *testing.B) {
	svc := benchmarkService()
	seed := int64(1)
	in := SimulateInput{PlanDOT: benchPlanDOT, Trials: 200, Seed: &seed, Benefit: 50_000}

	if _, err := svc.Simulate(context.Background(), in); err != nil {
		b.Fatalf("warmup simulate failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := svc.Simulate(context.Background(), in); err != nil {
			b.Fatalf("simulate failed: %v", err)
		}
	}
}

func BenchmarkServiceSimulateCachedParallel(b *testing.B) {
	svc := benchmarkService()
	seed := int64(1)
	in := SimulateInput{PlanDOT: benchPlanDOT, Trials: 50, Seed: &seed}

	if _, err := svc.Simulate(context.Background(), in); err != nil {
		b.Fatalf("warmup simulate failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.Simulate(context.Background(), in); err != nil {
				b.Fatalf("simulate failed: %v", err)
			}
		}
	})
}
