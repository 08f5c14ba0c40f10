package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want Platform
	}{
		{"https://boards.greenhouse.io/acme/jobs/123", PlatformGreenhouse},
		{"https://job-boards.greenhouse.io/acme/jobs/123", PlatformGreenhouse},
		{"https://jobs.lever.co/acme/abc-def", PlatformLever},
		{"https://acme.wd5.myworkdayjobs.com/en-US/careers/job/123", PlatformWorkday},
		{"https://jobs.ashbyhq.com/acme/123", PlatformAshby},
		{"https://example.com/careers", PlatformUnknown},
		{"https://notgreenhouse.io.example.com/x", PlatformUnknown},
		{"::not a url", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url))
		})
	}
}

func TestContentSelectors(t *testing.T) {
	gh := ContentSelectors(PlatformGreenhouse)
	assert.Equal(t, ".job__description", gh[0])
	assert.Contains(t, gh, "main")

	unknown := ContentSelectors(PlatformUnknown)
	assert.Equal(t, genericContent, unknown)
}

func TestNoiseSelectors(t *testing.T) {
	assert.Contains(t, NoiseSelectors(PlatformGreenhouse), "#usa_self_id_section")
	assert.Contains(t, NoiseSelectors(PlatformGreenhouse), "form")
	assert.Equal(t, genericNoise, NoiseSelectors(PlatformUnknown))
}
