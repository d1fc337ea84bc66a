package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/ar3ac/jobhunter/internal/model"
)

// KeyLength is the number of hex characters kept from the SHA-256 digest (64 bits).
const KeyLength = 16

// Pair is the identity of a posting: Strong is the unique key the store
// enforces, Soft is the coarse title/company/location key used to find
// cross-source candidates.
type Pair struct {
	Strong string
	Soft   string
}

// Derive computes both keys for p.
func Derive(p model.Posting) Pair {
	soft := SoftKey(p)
	return Pair{Strong: strongKey(p, soft), Soft: soft}
}

// SoftKey hashes the normalized title, company and location. It is defined
// for every posting; with all three empty it is the hash of "||".
func SoftKey(p model.Posting) string {
	return hash16(Normalize(p.Title) + "|" + Normalize(p.Company) + "|" + Normalize(p.Location))
}

// StrongKey picks the most reliable identity the posting carries, in order:
// source + adapter id, source + canonical URL, source + soft key.
func StrongKey(p model.Posting) string {
	return strongKey(p, SoftKey(p))
}

func strongKey(p model.Posting, soft string) string {
	source := Normalize(p.Source)
	if source != "" && Normalize(p.ID) != "" {
		return hash16(source + "|" + p.ID)
	}
	if source != "" {
		if canonical := CanonicalURL(p.URL); canonical != "" {
			return hash16(source + "|" + canonical)
		}
	}
	return hash16(source + "|" + soft)
}

func hash16(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:KeyLength]
}
