package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("LANGUAGE has highest priority", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "de_DE.UTF-8:en_US")
		t.Setenv("LC_ALL", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "de_DE" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "de_DE")
		}
	})

	t.Run("modifier is stripped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANG", "sr_RS.UTF-8@latin")

		if got := detectLanguage(); got != "sr_RS" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "sr_RS")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Upload finished"); got != "Upload finished" {
		t.Fatalf("T fallback = %q, want %q", got, "Upload finished")
	}

	if got := N("language", "languages", 1); got != "language" {
		t.Fatalf("N singular fallback = %q, want %q", got, "language")
	}

	if got := N("language", "languages", 2); got != "languages" {
		t.Fatalf("N plural fallback = %q, want %q", got, "languages")
	}
}

func TestEmbeddedGermanCatalog(t *testing.T) {
	old, oldLang := po, current
	t.Cleanup(func() { po, current = old, oldLang })

	Init("de")
	if Language() != "de" {
		t.Fatalf("Language() = %q, want de", Language())
	}
	if got := T("Upload finished"); got != "Upload abgeschlossen" {
		t.Fatalf("T() = %q, want German translation", got)
	}
	if got := N("Exported %d language", "Exported %d languages", 3); got != "%d Sprachen exportiert" {
		t.Fatalf("N(3) = %q, want German plural", got)
	}
	if got := T("not in the catalog"); got != "not in the catalog" {
		t.Fatalf("T() = %q, want passthrough for unknown ids", got)
	}
}
