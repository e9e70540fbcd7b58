package naming

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"purchased on 1/5/2024 at noon", "2024-01-05"},
		{"date: 12-31-2023", "2023-12-31"},
		{"printed 03.07.21", "2021-03-07"},
		{"January 5, 2024", "2024-01-05"},
		{"Jan 5 2024", "2024-01-05"},
		{"February 29, 2024", "2024-02-29"},
		{"receipt 7/4/99", "2099-07-04"},
		// Mixed delimiters are not a date.
		{"ref 1/5-2024 invalid", "fallback"},
		// Impossible dates are skipped, not truncated.
		{"February 30, 2024", "fallback"},
		{"4/31/2024", "fallback"},
		{"no date here", "fallback"},
	}
	for _, c := range cases {
		if got := ParseDate(c.text, "fallback"); got != c.want {
			t.Errorf("ParseDate(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestParseStore(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Store #0482", "0482"},
		{"store: 17", "17"},
		{"ST # : 223", "223"},
		{"no store line", "<store>"},
	}
	for _, c := range cases {
		if got := ParseStore(c.text, "<store>"); got != c.want {
			t.Errorf("ParseStore(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestParseTransaction(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Transaction #: 55-1034", "55-1034"},
		{"TRN# A5512", "A5512"},
		{"tran number: 88210", "88210"},
		{"Invoice: #2210", "2210"},
		{"nothing relevant", "<transaction>"},
	}
	for _, c := range cases {
		if got := ParseTransaction(c.text, "<transaction>"); got != c.want {
			t.Errorf("ParseTransaction(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestParseTotal(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"TOTAL: $42.17", "42.17"},
		{"total sale 9.99", "9.99"},
		{"Balance Due: 120", "120"},
		{"Amount $ 5.00", "5.00"},
		{"subtotal lines don't count alone", "<total>"},
	}
	for _, c := range cases {
		if got := ParseTotal(c.text, "<total>"); got != c.want {
			t.Errorf("ParseTotal(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestHeuristicGuesser(t *testing.T) {
	text := "ACME HARDWARE\n123 Main St 55555\nACME HARDWARE\nTOTAL: $9.99\nACME HARDWARE\nthank you\n"
	org, err := HeuristicGuesser{}.GuessOrganization(text)
	if err != nil {
		t.Fatalf("GuessOrganization: %v", err)
	}
	if org != "acme-hardware" {
		t.Fatalf("org = %q, want %q", org, "acme-hardware")
	}
}

func TestHeuristicGuesserNoCandidates(t *testing.T) {
	if _, err := (HeuristicGuesser{}).GuessOrganization("100 200 300\n$4.50\n"); err == nil {
		t.Fatal("expected error on candidate-free text")
	}
}

func TestResolve(t *testing.T) {
	text := "ACME HARDWARE\nStore #17\nTransaction #: 8812\n1/5/2024\nTOTAL: $3.50\n"
	r := Resolver{Org: HeuristicGuesser{}}
	got := r.Resolve("%o_%d_%s_%t_%a.pdf", text)
	want := "acme-hardware_2024-01-05_17_8812_3.50.pdf"
	if got != want {
		t.Fatalf("Resolve = %q, want %q", got, want)
	}
}

func TestResolveDateOnlyDocument(t *testing.T) {
	// Store and transaction extraction fail; the date succeeds.
	r := Resolver{Org: HeuristicGuesser{}}
	got := r.Resolve("%d_%s_%t.pdf", "receipt printed 1/5/2024, have a nice day")
	if got != "2024-01-05_<store>_<transaction>.pdf" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolveFallbacks(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC) }

	r := Resolver{Now: now}
	got := r.Resolve("%o_%d_%s_%t.pdf", "nothing parseable")
	want := "[org]_2024-01-05_<store>_<transaction>.pdf"
	if got != want {
		t.Fatalf("no guesser: Resolve = %q, want %q", got, want)
	}

	r = Resolver{Org: HeuristicGuesser{}, Now: now}
	got = r.Resolve("%o.pdf", "$1 $2 $3")
	if got != "<org>.pdf" {
		t.Fatalf("failed guess: Resolve = %q, want %q", got, "<org>.pdf")
	}
}
