package domain

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestShortenErrorMessageCollapsesWhitespace(t *testing.T) {
	got := ShortenErrorMessage("engine\n  call\t\tfailed:   status 502")
	want := "engine call failed: status 502"
	if got != want {
		t.Fatalf("ShortenErrorMessage() = %q, want %q", got, want)
	}
}

func TestShortenErrorMessageCapsLength(t *testing.T) {
	got := ShortenErrorMessage(strings.Repeat("x", 5000))
	if len(got) != errorMessageLimit+len("...") {
		t.Fatalf("expected capped length %d, got %d", errorMessageLimit+3, len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got[len(got)-10:])
	}
}

func TestShortenErrorMessageKeepsMultibyteRunesIntact(t *testing.T) {
	got := ShortenErrorMessage(strings.Repeat("翻訳に失敗しました ", 400))
	if !utf8.ValidString(got) {
		t.Fatalf("truncated message contains a broken rune: %q", got[len(got)-12:])
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got[len(got)-10:])
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n != errorMessageLimit {
		t.Fatalf("expected %d runes before the marker, got %d", errorMessageLimit, n)
	}
}

func TestProgressOfCountsStatuses(t *testing.T) {
	pages := []Page{
		{Status: PageDone},
		{Status: PageFailed},
		{Status: PagePending},
		{Status: PageDone},
	}
	progress := ProgressOf(pages)
	if progress.TotalPages != 4 || progress.DonePages != 2 || progress.FailedPages != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}
