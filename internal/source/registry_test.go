package source

import (
	"context"
	"reflect"
	"testing"

	"github.com/ar3ac/jobhunter/internal/model"
)

type namedSource string

func (n namedSource) Name() string { return string(n) }

func (n namedSource) Fetch(context.Context, model.Query) ([]model.Posting, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(namedSource("remotive"), namedSource("Adzuna"))
	r.Register(namedSource("acme-lever"))

	if _, ok := r.Lookup(" REMOTIVE "); !ok {
		t.Error("expected case-insensitive lookup to find remotive")
	}
	if s, ok := r.Lookup("adzuna"); !ok || s.Name() != "Adzuna" {
		t.Errorf("Lookup(adzuna) = %v, %v", s, ok)
	}
	if _, ok := r.Lookup("linkedin"); ok {
		t.Error("expected unknown source to be missing")
	}

	want := []string{"Adzuna", "acme-lever", "remotive"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
