package similarity

import (
	"hash/fnv"
	"math"
)

// Dim is the embedding dimension. Feature hashing makes the vectors fixed
// size regardless of vocabulary.
const Dim = 256

func bucket(kind, value string) int {
	h := fnv.New32a()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(value))
	return int(h.Sum32() % Dim)
}

// Embed feature-hashes a dataset's tokens, tags and categories into an
// L2-normalized vector. Tags and categories are curated so they weigh more
// than free-text tokens. The zero-content case returns a zero vector.
func Embed(tokens, tags, categories []string) []float32 {
	vec := make([]float32, Dim)

	for _, t := range tokens {
		vec[bucket("token", t)] += 1
	}
	for _, t := range tags {
		vec[bucket("tag", t)] += 2
	}
	for _, c := range categories {
		vec[bucket("category", c)] += 2
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
