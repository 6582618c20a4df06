package openrouter

import "testing"

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		allowedHosts []string
		wantErr      bool
	}{
		{
			name:    "default host with https",
			baseURL: "https://openrouter.ai",
		},
		{
			name:    "default api host with https",
			baseURL: "https://api.openrouter.ai",
		},
		{
			name:    "reject non-absolute URL",
			baseURL: "openrouter.ai",
			wantErr: true,
		},
		{
			name:    "reject http by default",
			baseURL: "http://openrouter.ai",
			wantErr: true,
		},
		{
			name:    "reject unknown host by default",
			baseURL: "https://evil.example",
			wantErr: true,
		},
		{
			name:         "allow configured host",
			baseURL:      "https://proxy.internal",
			allowedHosts: []string{"proxy.internal"},
		},
		{
			name:         "allow http for local gateway",
			baseURL:      "http://127.0.0.1:4000",
			allowedHosts: []string{"127.0.0.1"},
		},
		{
			name:         "reject http for remote allowed host",
			baseURL:      "http://proxy.internal",
			allowedHosts: []string{"proxy.internal"},
			wantErr:      true,
		},
		{
			name:    "reject query",
			baseURL: "https://openrouter.ai?x=1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.baseURL, tt.allowedHosts)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestHostSet(t *testing.T) {
	if got := hostSet([]string{" ", "https://", "http://"}); len(got) != len(defaultHosts) {
		t.Fatalf("expected default hosts, got %v", got)
	}
	got := hostSet([]string{"HTTPS://Proxy.Internal:8443/", "127.0.0.1:4000"})
	if !got["proxy.internal"] || !got["127.0.0.1"] || len(got) != 2 {
		t.Fatalf("unexpected host set: %v", got)
	}
}
