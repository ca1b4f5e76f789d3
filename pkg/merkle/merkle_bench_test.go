package merkle

import (
	"fmt"
	"testing"
)

// BenchmarkTreeBuild benchmarks tree construction with various batch sizes
func BenchmarkTreeBuild(b *testing.B) {
	sizes := []int{10, 50, 100, 500}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Records_%d", size), func(b *testing.B) {
			records := createTestRecords(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = Build(records)
			}
		})
	}
}

// BenchmarkProofGeneration benchmarks inclusion proof generation
func BenchmarkProofGeneration(b *testing.B) {
	sizes := []int{10, 50, 100, 500}

	for _, size := range sizes {
		records := createTestRecords(size)
		tree, _ := Build(records)

		b.Run(fmt.Sprintf("Records_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = tree.GetProof(i % size)
			}
		})
	}
}

// BenchmarkProofVerification benchmarks the pure proof fold
func BenchmarkProofVerification(b *testing.B) {
	sizes := []int{10, 50, 100, 500}

	for _, size := range sizes {
		records := createTestRecords(size)
		tree, _ := Build(records)
		proof, _ := tree.GetProof(0)

		b.Run(fmt.Sprintf("Records_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = proof.Verify()
			}
		})
	}
}

// BenchmarkHashRecord benchmarks canonical encoding plus leaf hashing
func BenchmarkHashRecord(b *testing.B) {
	record := createTestRecords(1)[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = HashRecord(record)
	}
}
