package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const marker = "/storage/v1/object/public/"

func TestIsManagedMediaURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://abc.supabase.co/storage/v1/object/public/spot-media/1.jpg", true},
		{"  https://abc.supabase.co/storage/v1/object/public/x.png ", true},
		{"https://example.com/images/1.jpg", false},
		{"file:///storage/v1/object/public/x.jpg", false},
		{"/storage/v1/object/public/x.jpg", false},
		{"", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsManagedMediaURL(tt.url, marker), tt.url)
	}
	assert.False(t, IsManagedMediaURL("https://abc.supabase.co/storage/v1/object/public/x.jpg", ""))
}

func TestParseSpotID(t *testing.T) {
	id, ok := ParseSpotID(" 4b1c1f8e-7a47-4a8e-9d0e-2f3c5b6a7d8e ")
	assert.True(t, ok)
	assert.Equal(t, "4b1c1f8e-7a47-4a8e-9d0e-2f3c5b6a7d8e", id.String())

	for _, bad := range []string{"", "spot-1", "00000000-0000-0000-0000-000000000000"} {
		_, ok := ParseSpotID(bad)
		assert.False(t, ok, bad)
	}

	assert.Nil(t, ParseUserID("nope"))
	assert.NotNil(t, ParseUserID("4b1c1f8e-7a47-4a8e-9d0e-2f3c5b6a7d8e"))
}
