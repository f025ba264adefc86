package utils

import "hash/fnv"

// StablePick maps key onto [0, n) the same way on every run. n must be positive.
func StablePick(key string, n int) int {
	return int(Fingerprint(key) % uint64(n))
}

// Fingerprint is the 64-bit FNV-1a hash of s, lowercased ASCII first so
// descriptions differing only in case land on the same department.
func Fingerprint(s string) uint64 {
	h := fnv.New64a()
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	_, _ = h.Write(b)
	return h.Sum64()
}
