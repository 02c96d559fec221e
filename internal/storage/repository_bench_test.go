package storage

import (
	"fmt"
	"testing"

	"github.com/getmockd/stubd/pkg/stub"
)

func benchRepository(b *testing.B, n int) *Repository {
	b.Helper()
	lifecycles := make([]*stub.Lifecycle, 0, n)
	for i := range n {
		lifecycles = append(lifecycles, lifecycle(fmt.Sprintf(`^/resource/%d/(\d+)$`, i), "ok"))
	}
	repo := NewRepository()
	if err := repo.ReplaceAll(lifecycles); err != nil {
		b.Fatal(err)
	}
	return repo
}

// BenchmarkRepository_Search measures a warm cache hit against the last stub.
func BenchmarkRepository_Search(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("stubs=%d", n), func(b *testing.B) {
			repo := benchRepository(b, n)
			req := get(fmt.Sprintf("/resource/%d/42", n-1))
			if _, ok := repo.Search(req); !ok {
				b.Fatal("no match")
			}

			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				repo.Search(req)
			}
		})
	}
}

// BenchmarkRepository_SearchMiss measures a full scan that matches nothing.
func BenchmarkRepository_SearchMiss(b *testing.B) {
	repo := benchRepository(b, 100)
	req := get("/nothing/here")

	b.ReportAllocs()
	for b.Loop() {
		repo.Search(req)
	}
}

// BenchmarkRepository_SearchParallel measures contention on the repository lock.
func BenchmarkRepository_SearchParallel(b *testing.B) {
	repo := benchRepository(b, 100)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			repo.Search(get(fmt.Sprintf("/resource/%d/1", i%100)))
			i++
		}
	})
}
