package textutil

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Hello, World!", "Hello, World!"},
		{"unicode", "日本語 café 🎉", "日本語 café 🎉"},
		{"keeps newline and tab", "a\nb\tc", "a\nb\tc"},
		{"drops color codes", "\x1b[31mred\x1b[0m text", "red text"},
		{"drops cursor movement", "safe\x1b[2J\x1b[Hwipe", "safewipe"},
		{"drops osc title", "\x1b]0;pwned\x07title", "title"},
		{"drops bell and backspace", "ding\x07\x08!", "ding!"},
		{"drops carriage return", "over\rwrite", "overwrite"},
		{"invalid utf8", "bad\xffbyte", "bad�byte"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"single line", "single line"},
		{"first\nsecond", "first"},
		{"\n\nleading newlines\nthen more", "leading newlines"},
		{"windows\r\nline", "windows"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FirstLine(tt.input); got != tt.want {
			t.Errorf("FirstLine(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
