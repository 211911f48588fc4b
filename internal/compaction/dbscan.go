package compaction

import "math"

// cosineDistanceMatrix returns the pairwise cosine distance (1 -
// similarity) between every pair of embeddings.
func cosineDistanceMatrix(embeddings [][]float32) [][]float64 {
	n := len(embeddings)
	norms := make([]float64, n)
	for i, v := range embeddings {
		norms[i] = norm(v)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := cosineDistance(embeddings[i], embeddings[j], norms[i], norms[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosineDistance(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 1.0
	}
	var dot float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	similarity := dot / (normA * normB)
	return 1.0 - similarity
}

// dbscan clusters points from a precomputed distance matrix, returning a
// label per point: -1 for noise, otherwise a non-negative cluster id.
// Standard DBSCAN: a point is a core point if it has at least minPts
// neighbors (including itself) within eps; clusters grow by expanding from
// core points to every density-reachable neighbor.
func dbscan(dist [][]float64, eps float64, minPts int) []int {
	n := len(dist)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -2 // unvisited
	}

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if dist[i][j] <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != -2 {
			continue
		}
		neigh := neighbors(i)
		if len(neigh) < minPts {
			labels[i] = -1
			continue
		}

		labels[i] = clusterID
		queue := append([]int{}, neigh...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == -1 {
				labels[j] = clusterID
			}
			if labels[j] != -2 {
				continue
			}
			labels[j] = clusterID

			jNeigh := neighbors(j)
			if len(jNeigh) >= minPts {
				queue = append(queue, jNeigh...)
			}
		}
		clusterID++
	}

	for i, l := range labels {
		if l == -2 {
			labels[i] = -1
		}
	}
	return labels
}
