package persian

import (
	"reflect"
	"testing"
)

func TestNormalizeArabicVariants(t *testing.T) {
	n := NewNormalizer(false)

	got, ok := n.Normalize("كيف")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if got != "کیف" {
		t.Fatalf("got %q, want %q", got, "کیف")
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	n := NewNormalizer(false)

	got, ok := n.Normalize("مَدرَسِه")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if got != "مدرسه" {
		t.Fatalf("got %q, want %q", got, "مدرسه")
	}
}

func TestNormalizeZWNJAndWhitespace(t *testing.T) {
	n := NewNormalizer(false)

	got, ok := n.Normalize("می‌شود   فردا")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if got != "می شود فردا" {
		t.Fatalf("got %q, want %q", got, "می شود فردا")
	}
}

func TestNormalizeRemovesURLsAndMentions(t *testing.T) {
	n := NewNormalizer(false)

	got, ok := n.Normalize("فولاد https://example.com/x @channel_name")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if got != "فولاد" {
		t.Fatalf("got %q, want %q", got, "فولاد")
	}
}

func TestNormalizeUnwrapsHashtags(t *testing.T) {
	n := NewNormalizer(false)

	got, ok := n.Normalize("#فولاد خبر")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if got != "فولاد خبر" {
		t.Fatalf("got %q, want %q", got, "فولاد خبر")
	}
}

func TestNormalizeCollapsesPunctuationRuns(t *testing.T) {
	n := NewNormalizer(false)

	got, ok := n.Normalize("چرا؟ عجب!!! ادامه...")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if got != "چرا؟ عجب! ادامه…" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeRemovesStopwords(t *testing.T) {
	n := NewNormalizer(true)

	got, ok := n.Normalize("فولاد از بورس به صعود رسید")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if got != "فولاد بورس صعود رسید" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeEmptyInputs(t *testing.T) {
	n := NewNormalizer(true)

	for _, text := range []string{"", "   ", "\n\t", "https://example.com"} {
		if got, ok := n.Normalize(text); ok {
			t.Fatalf("Normalize(%q) = %q, want absent", text, got)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(true)

	once, ok := n.Normalize("كتاب‌هاي #بورس رو از @kanal بخر https://t.me/x !!!")
	if !ok {
		t.Fatal("expected a normalized result")
	}
	twice, ok := n.Normalize(once)
	if !ok {
		t.Fatal("expected a normalized result")
	}
	if once != twice {
		t.Fatalf("not idempotent: %q then %q", once, twice)
	}
}

func TestTokenize(t *testing.T) {
	n := NewNormalizer(true)

	got := n.Tokenize("فولاد و شپنا در بورس")
	want := []string{"فولاد", "شپنا", "بورس"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if tokens := n.Tokenize("   "); tokens != nil {
		t.Fatalf("expected nil for blank input, got %v", tokens)
	}
}

func TestClean(t *testing.T) {
	got, ok := Clean("تماس: +989121234567 يا user@example.com #خبر https://t.me/x")
	if !ok {
		t.Fatal("expected a cleaned result")
	}
	if got != "تماس: يا خبر" {
		t.Fatalf("got %q", got)
	}

	// Clean keeps character variants untouched.
	got, ok = Clean("كيف")
	if !ok || got != "كيف" {
		t.Fatalf("got %q, %v", got, ok)
	}

	if got, ok := Clean("https://only-a-link.example"); ok {
		t.Fatalf("expected absent, got %q", got)
	}
}
