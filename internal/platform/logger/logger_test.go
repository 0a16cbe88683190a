package logger

import "testing"

func TestSanitizeValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key  string
		val  interface{}
		want interface{}
	}{
		{key: "api_key", val: "AIza-secret", want: "[REDACTED]"},
		{key: "authorization", val: "Bearer x", want: "[REDACTED]"},
		{key: "image", val: "data:image/png;base64,AAAA", want: "[26 chars]"},
		{key: "current_dom", val: []byte("<div></div>"), want: "[11 bytes]"},
		{key: "model", val: "gemini-2.5-flash", want: "gemini-2.5-flash"},
		{key: "note", val: "aaaaaaaaaaaa.bbbbbbbbbbbb.cccc", want: "[REDACTED]"},
	}
	for _, tc := range cases {
		if got := sanitizeValue(tc.key, tc.val); got != tc.want {
			t.Fatalf("sanitizeValue(%q)=%v want=%v", tc.key, got, tc.want)
		}
	}
}

func TestHashValueIsStable(t *testing.T) {
	t.Parallel()

	a := sanitizeValue("session_id", "abc")
	b := sanitizeValue("session_id", "abc")
	if a != b {
		t.Fatalf("hash not stable: %v vs %v", a, b)
	}
	s, _ := a.(string)
	if len(s) != len("hash:")+12 {
		t.Fatalf("unexpected hash form: %q", s)
	}
}
