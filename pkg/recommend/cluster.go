package recommend

import (
	"math/rand"

	"github.com/jiyeon-yoon/picta-prototype/internal/encoding"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
)

// kmeansIterations is fixed, not configurable, matching the engine's
// clustering contract.
const kmeansIterations = 50

// kmeans clusters vectors (assumed unit-norm, index-aligned with ids)
// into n groups via Lloyd's algorithm with k-means++ seeding, scored
// by cosine similarity rather than Euclidean distance so the result
// matches the same similarity space the ANN index searches in.
func kmeans(ids []domain.PhotoId, vectors [][]float32, n int, rng *rand.Rand) map[int][]domain.PhotoId {
	if n <= 0 || len(vectors) == 0 {
		return map[int][]domain.PhotoId{}
	}
	if n > len(vectors) {
		n = len(vectors)
	}

	centroids := seedPlusPlus(vectors, n, rng)
	assignment := make([]int, len(vectors))

	for iter := 0; iter < kmeansIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearestCentroid(v, centroids)
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}

		sums := make([][]float32, n)
		counts := make([]int, n)
		for i, v := range vectors {
			c := assignment[i]
			if sums[c] == nil {
				sums[c] = make([]float32, len(v))
			}
			for d, x := range v {
				sums[c][d] += x
			}
			counts[c]++
		}
		for c := 0; c < n; c++ {
			if counts[c] == 0 {
				continue // keep the previous centroid rather than reseed mid-run
			}
			mean := make([]float32, len(sums[c]))
			for d := range mean {
				mean[d] = sums[c][d] / float32(counts[c])
			}
			centroids[c] = encoding.Normalize(mean)
		}

		if iter > 0 && !changed {
			break
		}
	}

	out := make(map[int][]domain.PhotoId, n)
	for i, c := range assignment {
		out[c] = append(out[c], ids[i])
	}
	return out
}

// seedPlusPlus picks n initial centroids via k-means++: the first
// uniformly at random, each subsequent one with probability
// proportional to its squared cosine distance from the nearest
// already-chosen centroid.
func seedPlusPlus(vectors [][]float32, n int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, n)
	first := vectors[rng.Intn(len(vectors))]
	centroids = append(centroids, append([]float32(nil), first...))

	for len(centroids) < n {
		weights := make([]float64, len(vectors))
		var total float64
		for i, v := range vectors {
			d := 1 - float64(nearestSimilarity(v, centroids))
			if d < 0 {
				d = 0
			}
			weights[i] = d * d
			total += weights[i]
		}
		if total == 0 {
			// All remaining points coincide with existing centroids;
			// fall back to uniform pick so seeding still terminates.
			centroids = append(centroids, append([]float32(nil), vectors[rng.Intn(len(vectors))]...))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		chosen := len(vectors) - 1
		for i, w := range weights {
			cum += w
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float32(nil), vectors[chosen]...))
	}
	return centroids
}

func nearestCentroid(v []float32, centroids [][]float32) int {
	best := 0
	bestSim := float32(-2)
	for i, c := range centroids {
		sim := float32(encoding.CosineSimilarity(v, c))
		if sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	return best
}

func nearestSimilarity(v []float32, centroids [][]float32) float32 {
	best := float32(-2)
	for _, c := range centroids {
		if sim := float32(encoding.CosineSimilarity(v, c)); sim > best {
			best = sim
		}
	}
	return best
}
