package httpclient

import "testing"

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no sensitive parts unchanged",
			in:   "https://mirror.example.com/api/v1/blocks?limit=1&order=desc",
			want: "https://mirror.example.com/api/v1/blocks?limit=1&order=desc",
		},
		{
			name: "api key masked",
			in:   "https://node.example.com/rpc?api-key=secret123",
			want: "https://node.example.com/rpc?api-key=%2A%2A%2A",
		},
		{
			name: "token and auth masked together",
			in:   "https://node.example.com/rpc?token=abc&auth=def",
			want: "https://node.example.com/rpc?auth=%2A%2A%2A&token=%2A%2A%2A",
		},
		{
			name: "long hex path segment masked",
			in:   "https://node.example.com/v2/deadbeefdeadbeef/status",
			want: "https://node.example.com/v2/***/status",
		},
		{
			name: "high entropy alphanumeric segment masked",
			in:   "https://node.example.com/k/Xy9_qwerty-12345ABCDE99/height",
			want: "https://node.example.com/k/***/height",
		},
		{
			name: "account id path untouched",
			in:   "https://mirror.example.com/api/v1/balances/0.0.1001",
			want: "https://mirror.example.com/api/v1/balances/0.0.1001",
		},
		{
			name: "short segments untouched",
			in:   "https://node.example.com/api/v1/transactions",
			want: "https://node.example.com/api/v1/transactions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeURL(tt.in); got != tt.want {
				t.Errorf("SanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLooksLikeToken(t *testing.T) {
	if looksLikeToken("blocks") {
		t.Error("short word flagged as token")
	}
	if !looksLikeToken("0123456789abcdef") {
		t.Error("16 hex chars not flagged")
	}
	if looksLikeToken("transactions-and-more") {
		t.Error("letters-only segment flagged")
	}
}
