package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ar3ac/jobhunter/internal/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lower and trim", "  Backend Engineer ", "backend engineer"},
		{"separators", "Senior Dev – Backend / Go | Remote:EU", "senior dev backend go remote eu"},
		{"separator run", "a//b——c", "a b c"},
		{"whitespace run", "\tHello\n\n  World", "hello world"},
		{"trailing separator keeps one space", "Dev /", "dev "},
		{"only separators", "|||", " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"host case and trailing slash", "https://Example.com/job/42/", "https://example.com/job/42"},
		{"query and fragment dropped", "https://example.com/job/42?utm=abc#frag", "https://example.com/job/42"},
		{"root path", "https://example.com/", "https://example.com"},
		{"port kept", "http://Jobs.Acme.io:8080/a/b", "http://jobs.acme.io:8080/a/b"},
		{"only one trailing slash stripped", "https://example.com/a//", "https://example.com/a/"},
		{"no scheme", "example.com/job/1?x=1", "example.com/job/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalURL(tt.in))
		})
	}
}

func TestCanonicalURL_Equivalence(t *testing.T) {
	a := CanonicalURL("https://Example.com/job/42/")
	b := CanonicalURL("https://example.com/job/42?utm=abc#frag")
	assert.Equal(t, a, b)

	pa := model.Posting{Source: "acme", URL: "https://Example.com/job/42/"}
	pb := model.Posting{Source: "acme", URL: "https://example.com/job/42?utm=abc#frag"}
	assert.Equal(t, StrongKey(pa), StrongKey(pb))
}

func TestSoftKey_KnownValues(t *testing.T) {
	assert.Equal(t, "565d240f5343e625", SoftKey(model.Posting{}))
	assert.Equal(t, "f569ac71b871b292", SoftKey(model.Posting{Title: " DEV ", Company: "Acme", Location: "Remote"}))
}

func TestStrongKey_Branches(t *testing.T) {
	// id branch: normalize(source) | raw id
	assert.Equal(t, "dbf12ffd651dfb76", StrongKey(model.Posting{Source: "ACME", ID: "42"}))

	// url branch: normalize(source) | canonical url
	assert.Equal(t, "371d03b48f0d8e3b", StrongKey(model.Posting{Source: "acme", URL: "https://X/42/?ref=abc"}))

	// soft branch with no source: "" | soft
	p := model.Posting{Title: "Dev", Company: "Acme", Location: "Remote"}
	assert.Equal(t, hash16("|"+SoftKey(p)), StrongKey(p))
}

func TestStrongKey_IDWinsOverURL(t *testing.T) {
	a := model.Posting{Source: "acme", ID: "42", URL: "https://X/42?ref=abc"}
	b := model.Posting{Source: "acme", ID: "42", URL: "https://X/other"}
	assert.Equal(t, StrongKey(a), StrongKey(b))
}

func TestStrongKey_BlankIDFallsThroughToURL(t *testing.T) {
	withBlankID := model.Posting{Source: "acme", ID: "   ", URL: "https://x/42"}
	withoutID := model.Posting{Source: "acme", URL: "https://x/42"}
	assert.Equal(t, StrongKey(withoutID), StrongKey(withBlankID))
}

func TestStrongKey_URLWithoutSourceFallsBackToSoft(t *testing.T) {
	a := model.Posting{URL: "https://x/1", Title: "Dev", Company: "Acme"}
	b := model.Posting{URL: "https://x/2", Title: "dev", Company: "ACME"}
	assert.Equal(t, StrongKey(a), StrongKey(b))
}

func TestStrongKey_FallbackDeterminism(t *testing.T) {
	a := model.Posting{Title: "Go Developer", Company: "Acme | Inc", Location: "Milano"}
	b := model.Posting{Title: "  go   developer", Company: "acme inc", Location: "MILANO "}
	require.Equal(t, SoftKey(a), SoftKey(b))
	assert.Equal(t, StrongKey(a), StrongKey(b))
	assert.NotEmpty(t, StrongKey(model.Posting{}))
}

func TestDerive_CrossSourceNonCollision(t *testing.T) {
	a := Derive(model.Posting{Source: "a", Title: "Dev", Company: "Acme", Location: "Remote"})
	b := Derive(model.Posting{Source: "b", Title: "Dev", Company: "Acme", Location: "Remote"})
	assert.NotEqual(t, a.Strong, b.Strong)
	assert.Equal(t, a.Soft, b.Soft)
}

func TestDerive_Deterministic(t *testing.T) {
	p := model.Posting{Source: "remotive", ID: "7", Title: "Dev", Company: "Acme", URL: "https://remotive.com/7"}
	first := Derive(p)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Derive(p))
	}
	assert.Len(t, first.Strong, KeyLength)
	assert.Len(t, first.Soft, KeyLength)
}
