package primemap

// isPrime reports whether n is prime using trial division by odd factors.
func isPrime(n int) bool {
	if n == 2 || n == 3 {
		return true
	}
	if n < 2 || n%2 == 0 {
		return false
	}
	for factor := 3; factor*factor <= n; factor += 2 {
		if n%factor == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime >= n. Even inputs are bumped to the
// next odd number first, then candidates advance in steps of 2.
func nextPrime(n int) int {
	if n <= 2 {
		return 2
	}
	if n%2 == 0 {
		n++
	}
	for !isPrime(n) {
		n += 2
	}
	return n
}

// normalizeCapacity keeps prime capacities as they are and rounds
// everything else up with nextPrime.
func normalizeCapacity(n int) int {
	if isPrime(n) {
		return n
	}
	return nextPrime(n)
}
