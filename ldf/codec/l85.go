// Package codec holds compact encodings for keys kept in memory, such as
// the solution digests used for duplicate elimination.
package codec

import "crypto/sha1"

// Alphabet is the L85 alphabet: a base-85 variant whose characters are in
// ascending byte order, so encoded strings sort like their input bytes.
const Alphabet = "!$%&()+,-./" +
	"0123456789:;<=>@" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ[]_`" +
	"abcdefghijklmnopqrstuvwxyz{}"

// DigestLength is the length of the strings returned by Digest.
const DigestLength = 25

// Digest returns the SHA-1 of s in L85, a 25-character key.
func Digest(s string) string {
	sum := sha1.Sum([]byte(s))
	return Encode(sum[:])
}

// Encode writes every 4 bytes as 5 digits, big endian. A trailing group of
// n bytes takes n+1 digits.
func Encode(src []byte) string {
	out := make([]byte, 0, (len(src)*5+3)/4)
	for len(src) > 0 {
		var group [4]byte
		n := copy(group[:], src)
		src = src[n:]

		v := uint32(group[0])<<24 | uint32(group[1])<<16 | uint32(group[2])<<8 | uint32(group[3])
		var digits [5]byte
		for j := 4; j >= 0; j-- {
			digits[j] = Alphabet[v%85]
			v /= 85
		}
		out = append(out, digits[:n+1]...)
	}
	return string(out)
}
