package ident

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/patchsim/engine/ident/codec"
)

// PatchID is a deterministic, L85-encoded identifier for a patch at grid
// coordinates (i, j), derived from the run seed so that two runs with the
// same seed and grid produce byte-identical patch ids (spec §6: "a
// deterministic patch id").
func PatchID(seed int64, i, j int) string {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(seed))
	binary.BigEndian.PutUint64(buf[8:16], uint64(int64(i)))
	binary.BigEndian.PutUint64(buf[16:24], uint64(int64(j)))

	h := xxhash.Sum64(buf[:])
	var hashed [8]byte
	binary.BigEndian.PutUint64(hashed[:], h)

	return codec.EncodeL85(hashed[:])
}

// PatchRNGSeed derives a deterministic per-patch RNG seed from the run seed
// and patch coordinate, resolving the open question in spec §9 in favor of
// seeding by coordinate rather than visit order: determinism must not
// depend on worker-pool scheduling.
func PatchRNGSeed(runSeed int64, i, j int) int64 {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(runSeed))
	binary.BigEndian.PutUint64(buf[8:16], uint64(int64(i)))
	binary.BigEndian.PutUint64(buf[16:24], uint64(int64(j)))
	return int64(xxhash.Sum64(buf[:]))
}
