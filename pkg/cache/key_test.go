package cache

import "testing"

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      CacheKey
		expected string
	}{
		{
			name:     "no args",
			key:      CacheKey{Portal: "acme.bitrix24.com", Lookup: "users"},
			expected: "bitrix24:options:acme.bitrix24.com:users",
		},
		{
			name:     "single arg",
			key:      CacheKey{Portal: "acme.bitrix24.com", Lookup: "dealStages", Args: map[string]string{"categoryId": "3"}},
			expected: "bitrix24:options:acme.bitrix24.com:dealStages:categoryId=3",
		},
		{
			name: "args sorted",
			key: CacheKey{Portal: "acme.bitrix24.com", Lookup: "customFields", Args: map[string]string{
				"entity": "deal",
				"bucket": "uf",
			}},
			expected: "bitrix24:options:acme.bitrix24.com:customFields:bucket=uf:entity=deal",
		},
		{
			name:     "portal lowercased",
			key:      CacheKey{Portal: "ACME.Bitrix24.com", Lookup: "users"},
			expected: "bitrix24:options:acme.bitrix24.com:users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Portal: "acme.bitrix24.com",
		Lookup: "customFields",
		Args:   map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
	}
	first := key.String()
	for i := 0; i < 100; i++ {
		if got := key.String(); got != first {
			t.Fatalf("iteration %d: String() = %q, want %q", i, got, first)
		}
	}
}

func TestPortalPattern(t *testing.T) {
	if got := PortalPattern("Acme.bitrix24.com"); got != "bitrix24:options:acme.bitrix24.com:*" {
		t.Errorf("PortalPattern() = %q", got)
	}
}
