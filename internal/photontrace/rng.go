package photontrace

// RNG is a hybrid-Tausworthe/L'Ecuyer generator: three Tausworthe steps and one
// linear-congruential step combined by XOR, scaled into (0,1). Walkers never share
// RNG state; each Photon embeds its own RNG seeded by the Driver with four distinct
// seeds >= 128.
type RNG struct {
	z1, z2, z3, z4 uint32
}

// NewRNG seeds a fresh generator. Each seed must be >= 128 (spec requirement on
// Tausworthe seed quality); callers are expected to enforce this when deriving seeds.
func NewRNG(s1, s2, s3, s4 uint32) RNG {
	return RNG{z1: s1, z2: s2, z3: s3, z4: s4}
}

func tausStep(z *uint32, s1, s2, s3 uint, m uint32) uint32 {
	b := ((*z << s1) ^ *z) >> s2
	*z = ((*z & m) << s3) ^ b
	return *z
}

func lcgStep(z *uint32, a, c uint32) uint32 {
	*z = a**z + c
	return *z
}

// Next returns a uniform double strictly in (0,1); a combined word of zero is
// discarded and redrawn. Combined period ~2^121.
func (r *RNG) Next() Real {
	for {
		t1 := tausStep(&r.z1, 13, 19, 12, 4294967294)
		t2 := tausStep(&r.z2, 2, 25, 4, 4294967288)
		t3 := tausStep(&r.z3, 3, 11, 17, 4294967280)
		t4 := lcgStep(&r.z4, 1664525, 1013904223)
		if x := t1 ^ t2 ^ t3 ^ t4; x != 0 {
			return 2.3283064365387e-10 * Real(x)
		}
	}
}
