/*
Package hash provides rolling hashes for maintaining the positions of
n-byte sequences in a dictionary buffer.

This package is carried over unmodified from the reference compressor:
a rolling hash has no lzip-specific shape to adapt, so RabinKarp,
NewRabinKarpConst and the Roller interface are kept exactly as written
there rather than reworked for the sake of it. FastEncoder is the only
production caller, and it only ever needs NewRabinKarp's default
constant; NewRabinKarpConst and the Roller interface (via
ComputeHashes) exist for the rolling-hash properties rabin_karp_test.go
checks against a brute-force reference, not because a second roller
implementation is expected to show up.
*/
package hash
