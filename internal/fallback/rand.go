package fallback

// mulberry32 is a small 32-bit PRNG. It is fast and reproducible, not secure.
type mulberry32 struct {
	state uint32
}

func newMulberry32(seed uint32) *mulberry32 {
	return &mulberry32{state: seed}
}

// Float64 returns a value in [0, 1).
func (m *mulberry32) Float64() float64 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return float64(t^t>>14) / 4294967296.0
}

// Intn returns a value in [0, n). n must be positive.
func (m *mulberry32) Intn(n int) int {
	return int(m.Float64() * float64(n))
}

func pick[T any](m *mulberry32, items []T) T {
	return items[m.Intn(len(items))]
}
