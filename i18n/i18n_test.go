package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "LANGUAGE has highest priority",
			env:  map[string]string{"LANGUAGE": "ru_RU.UTF-8:en_US", "LC_ALL": "de_DE.UTF-8"},
			want: "ru_RU",
		},
		{
			name: "C and POSIX are skipped",
			env:  map[string]string{"LANGUAGE": "C", "LC_ALL": "POSIX", "LC_MESSAGES": "fr_FR.UTF-8"},
			want: "fr_FR",
		},
		{
			name: "falls back to en",
			want: "en",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearLocaleEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if got := detectLanguage(); got != tc.want {
				t.Fatalf("detectLanguage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveLanguage(t *testing.T) {
	tests := map[string]string{
		"ru":    "ru",
		"ru_RU": "ru",
		"ru-RU": "ru",
		"de_DE": "de_DE",
		"!!":    "!!",
	}
	for in, want := range tests {
		if got := resolveLanguage(in); got != want {
			t.Errorf("resolveLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitTranslates(t *testing.T) {
	oldPo, oldCurrent := po, current
	t.Cleanup(func() { po, current = oldPo, oldCurrent })

	Init("ru_RU")
	if current != "ru" {
		t.Fatalf("current = %q, want ru", current)
	}
	if got := T("No source files found"); got != "Исходные файлы не найдены" {
		t.Fatalf("T() = %q", got)
	}
	if got := T("Not in the catalog"); got != "Not in the catalog" {
		t.Fatalf("untranslated T() = %q", got)
	}
}

func TestUninitializedReturnsMsgid(t *testing.T) {
	saved := po
	po = nil
	t.Cleanup(func() { po = saved })

	if got := T("No key found for %q"); got != "No key found for %q" {
		t.Errorf("T = %q", got)
	}
	for n, want := range map[int]string{1: "Extracted %d string", 3: "Extracted %d strings"} {
		if got := N("Extracted %d string", "Extracted %d strings", n); got != want {
			t.Errorf("N(%d) = %q, want %q", n, got, want)
		}
	}
}
