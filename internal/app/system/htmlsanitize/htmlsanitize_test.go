package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/dukhiatma/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_Unchanged(t *testing.T) {
	for _, in := range []string{"Asha Rao", "Tom & Jerry", "O'Brien", "1 < 2"} {
		if got := htmlsanitize.PlainText(in); got != in {
			t.Errorf("PlainText(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	if got := htmlsanitize.PlainText("<b>Asha</b> Rao"); got != "Asha Rao" {
		t.Errorf("expected tags stripped, got %q", got)
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("Asha<script>alert('xss')</script>")
	if got != "Asha" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestPlainText_EncodedMarkupNotRestored(t *testing.T) {
	tests := []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;lt;img src=x onerror=alert(1)&amp;gt;",
		"Asha &lt;b&gt;Rao&lt;/b&gt;",
	}
	for _, in := range tests {
		got := htmlsanitize.PlainText(in)
		if strings.Contains(got, "<") || strings.Contains(got, ">") {
			t.Errorf("PlainText(%q) = %q, markup restored", in, got)
		}
	}
}
