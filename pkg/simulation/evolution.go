// pkg/simulation/evolution.go
package simulation

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Breeding parameters.
const (
	eliteFraction  = 5  // the top 1/eliteFraction survive unchanged
	parentFraction = 10 // parents come from the top 1/parentFraction
	mutationChance = 0.05
	mutationScale  = 0.5
)

// Breeder produces generations of DNA. It is not safe for concurrent use.
type Breeder struct {
	rng        *rand.Rand
	genomeSize int
}

// NewBreeder creates a breeder whose choices are fully determined by seed.
func NewBreeder(seed uint64, genomeSize int) *Breeder {
	return &Breeder{
		rng:        rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)),
		genomeSize: genomeSize,
	}
}

// Initial returns size random genomes.
func (b *Breeder) Initial(size int) []DNA {
	population := make([]DNA, size)
	for i := range population {
		population[i] = RandomDNA(b.rng, b.genomeSize)
	}
	return population
}

// Next ranks population by fitness, keeps the best fifth unchanged and fills
// the rest with children of parents drawn from the best tenth. Every child
// gene comes from one parent and may be nudged by up to mutationScale.
// Results with an error rank last. The returned generation has the same size
// as population.
func (b *Breeder) Next(population []DNA, results []Result) []DNA {
	size := len(population)
	if size == 0 {
		return nil
	}

	ranked := make([]int, size)
	for i := range ranked {
		ranked[i] = i
	}
	score := func(i int) float64 {
		if i >= len(results) || results[i].Err != nil || math.IsNaN(results[i].Fitness) {
			return math.Inf(-1)
		}
		return results[i].Fitness
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return score(ranked[i]) > score(ranked[j])
	})

	next := make([]DNA, 0, size)
	elites := max(1, size/eliteFraction)
	for _, idx := range ranked[:elites] {
		next = append(next, population[idx].Clone())
	}

	parents := max(1, size/parentFraction)
	for len(next) < size {
		mom := population[ranked[b.rng.IntN(parents)]]
		dad := population[ranked[b.rng.IntN(parents)]]
		next = append(next, b.child(mom, dad))
	}
	return next
}

func (b *Breeder) child(mom, dad DNA) DNA {
	kid := make(DNA, len(mom))
	for i := range kid {
		if b.rng.IntN(2) == 0 {
			kid[i] = mom[i]
		} else {
			kid[i] = dad[i]
		}
		if b.rng.Float64() < mutationChance {
			kid[i] += (b.rng.Float64()*2 - 1) * mutationScale
		}
	}
	return kid
}
