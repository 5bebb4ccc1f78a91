package insight

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// kmeansResult is one clustering attempt's outcome: cluster assignment per
// point and final centroids.
type kmeansResult struct {
	labels    []int
	centroids [][]float64
	inertia   float64
}

// runKMeans is a small hand-rolled Lloyd's-algorithm implementation; no
// example repo in the retrieval pack ships a clustering library, so this is
// implemented directly, using gonum's floats.Add to accumulate centroid sums
// and a hand-written squared Euclidean distance for assignment.
func runKMeans(rng *rand.Rand, points [][]float64, k int, maxIterations int) kmeansResult {
	n := len(points)
	centroids := make([][]float64, k)
	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), points[perm[i%n]]...)
	}

	labels := make([]int, n)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := squaredEuclidean(p, centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if labels[i] != best {
				changed = true
			}
			labels[i] = best
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		dim := len(points[0])
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := labels[i]
			floats.Add(sums[c], p)
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}

		if !changed {
			break
		}
	}

	var inertia float64
	for i, p := range points {
		inertia += squaredEuclidean(p, centroids[labels[i]])
	}

	return kmeansResult{labels: labels, centroids: centroids, inertia: inertia}
}

func squaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// selectByElbow clusters points for every k in [2, maxK] (capped at n-1)
// and picks the smallest k past which inertia improvement drops below 10%
// of the improvement from k=2 to k=3 — a simple elbow heuristic.
func selectByElbow(rng *rand.Rand, points [][]float64, minK, maxK int) kmeansResult {
	n := len(points)
	if maxK > n-1 {
		maxK = n - 1
	}
	if maxK < minK {
		maxK = minK
	}

	results := make([]kmeansResult, 0, maxK-minK+1)
	for k := minK; k <= maxK; k++ {
		results = append(results, runKMeans(rng, points, k, 50))
	}
	if len(results) == 1 {
		return results[0]
	}

	baseline := results[0].inertia - results[1].inertia
	if baseline <= 0 {
		return results[0]
	}
	for i := 1; i < len(results)-1; i++ {
		drop := results[i].inertia - results[i+1].inertia
		if drop < 0.1*baseline {
			return results[i]
		}
	}
	return results[len(results)-1]
}

// cosineDistance is 1 - cosine similarity.
func cosineDistance(a, b []float64) float64 {
	dot := floats.Dot(a, b)
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(normA*normB)
}

// polarization computes mean centroid-to-centroid cosine distance across
// cluster pairs divided by (mean inter + mean intra), where intra distances
// are point-to-own-centroid — the same statistic as
// _calculate_polarization_score in original_source's insight_service.py,
// not a pairwise-point distance (a different, and materially larger,
// statistic for any cluster with more than one member). The cluster_penalty
// term the source applies here is left to the caller (aggregator.go's
// computeConsensus), matching the spec's formula split between polarization
// and consensus.
func polarization(points [][]float64, labels []int) float64 {
	clusterPoints := map[int][][]float64{}
	for i, l := range labels {
		clusterPoints[l] = append(clusterPoints[l], points[i])
	}
	if len(clusterPoints) <= 1 {
		return 0
	}

	centroids := make(map[int][]float64, len(clusterPoints))
	for label, pts := range clusterPoints {
		centroids[label] = centroidOf(pts)
	}

	uniqueLabels := make([]int, 0, len(centroids))
	for label := range centroids {
		uniqueLabels = append(uniqueLabels, label)
	}

	var interSum float64
	var interCount int
	for i := 0; i < len(uniqueLabels); i++ {
		for j := i + 1; j < len(uniqueLabels); j++ {
			d := cosineDistance(centroids[uniqueLabels[i]], centroids[uniqueLabels[j]])
			if !math.IsNaN(d) {
				interSum += d
				interCount++
			}
		}
	}
	meanInter := 0.0
	if interCount > 0 {
		meanInter = interSum / float64(interCount)
	}

	var intraSum float64
	var intraCount int
	for _, label := range uniqueLabels {
		pts := clusterPoints[label]
		if len(pts) <= 1 {
			continue
		}
		centroid := centroids[label]
		for _, p := range pts {
			d := cosineDistance(p, centroid)
			if !math.IsNaN(d) {
				intraSum += d
				intraCount++
			}
		}
	}
	meanIntra := 0.0
	if intraCount > 0 {
		meanIntra = intraSum / float64(intraCount)
	}

	denom := meanInter + meanIntra
	if denom == 0 {
		return 0
	}
	return meanInter / denom
}

// centroidOf returns the mean of pts, a point-wise arithmetic average.
func centroidOf(pts [][]float64) []float64 {
	dim := len(pts[0])
	centroid := make([]float64, dim)
	for _, p := range pts {
		for d := 0; d < dim; d++ {
			centroid[d] += p[d]
		}
	}
	for d := range centroid {
		centroid[d] /= float64(len(pts))
	}
	return centroid
}
