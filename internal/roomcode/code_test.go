package roomcode

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestGenerateCharset(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))
	for i := 0; i < 1000; i++ {
		code := g.Generate()
		if len(code) != Length {
			t.Fatalf("len(%q) = %d, want %d", code, len(code), Length)
		}
		for _, c := range code {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("code %q contains %q outside alphabet", code, c)
			}
			if strings.ContainsRune("0OI1l", c) {
				t.Fatalf("code %q contains ambiguous character %q", code, c)
			}
		}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "valid", code: "ABC234", want: true},
		{name: "too short", code: "ABC23", want: false},
		{name: "too long", code: "ABC2345", want: false},
		{name: "lowercase rejected", code: "abc234", want: false},
		{name: "ambiguous zero", code: "ABC204", want: false},
		{name: "ambiguous oh", code: "ABCO34", want: false},
		{name: "ambiguous one", code: "ABC134", want: false},
		{name: "ambiguous eye", code: "ABIC34", want: false},
		{name: "empty", code: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.code); got != tt.want {
				t.Fatalf("IsValid(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestGenerateUniqueExhaustsBudget(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(2)))
	calls := 0
	alwaysTaken := func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}
	code, err := g.GenerateUnique(context.Background(), alwaysTaken)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if code != "" {
		t.Fatalf("code = %q, want empty", code)
	}
	if calls != 5 {
		t.Fatalf("existence checks = %d, want 5", calls)
	}
}

func TestGenerateUniqueFirstTry(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(3)))
	calls := 0
	neverTaken := func(context.Context, string) (bool, error) {
		calls++
		return false, nil
	}
	code, err := g.GenerateUnique(context.Background(), neverTaken)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !IsValid(code) {
		t.Fatalf("generated invalid code %q", code)
	}
	if calls != 1 {
		t.Fatalf("existence checks = %d, want 1", calls)
	}
}

func TestGenerateUniquePropagatesCheckError(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(4)))
	boom := errors.New("store down")
	_, err := g.GenerateUnique(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want store error", err)
	}
}
