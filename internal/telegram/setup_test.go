package telegram

import "testing"

func TestTokenPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "Long Token", token: "123456789:AAFakeTokenValue", want: "12345678..."},
		{name: "Exactly Eight", token: "12345678", want: "12345678..."},
		{name: "Short Token", token: "abc", want: "abc..."},
		{name: "Empty Token", token: "", want: "..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tokenPreview(tc.token); got != tc.want {
				t.Errorf("tokenPreview(%q) = %q, want %q", tc.token, got, tc.want)
			}
		})
	}
}
