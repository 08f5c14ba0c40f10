package fetch

import (
	"net/url"
	"strings"
)

// Platform is a known job board.
type Platform string

// Known job boards
const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

var platformHosts = []struct {
	suffix   string
	platform Platform
}{
	{"greenhouse.io", PlatformGreenhouse},
	{"lever.co", PlatformLever},
	{"myworkdayjobs.com", PlatformWorkday},
	{"workday.com", PlatformWorkday},
	{"ashbyhq.com", PlatformAshby},
}

var platformContent = map[Platform][]string{
	PlatformGreenhouse: {".job__description", ".job-description__content", "#content", ".job-post-container"},
	PlatformLever:      {".posting-page", ".posting-description", ".content"},
	PlatformWorkday:    {"[data-automation-id='jobDescription']", ".job-description"},
	PlatformAshby:      {".ashby-job-posting-right-pane", "main"},
}

var platformNoise = map[Platform][]string{
	PlatformGreenhouse: {".application--wrapper", ".voluntary-self-id", "#usa_self_id_section"},
	PlatformLever:      {".apply-section", ".posting-apply"},
	PlatformWorkday:    {"[data-automation-id='applyButton']"},
}

// genericContent are tried for every page after the platform's own selectors.
var genericContent = []string{
	".job-description",
	"#job-description",
	".job-details",
	"[data-testid='job-description']",
	"main",
	"article",
	".content",
	"#content",
}

// genericNoise covers application forms, EEO boilerplate and sharing widgets.
var genericNoise = []string{
	"form",
	".application-form",
	".eeo-statement",
	".voluntary-disclosure",
	".social-share",
	".cookie-consent",
}

// DetectPlatform identifies the job board from the URL host.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range platformHosts {
		if host == h.suffix || strings.HasSuffix(host, "."+h.suffix) {
			return h.platform
		}
	}
	return PlatformUnknown
}

// ContentSelectors returns the main-content selectors for a platform, most
// specific first.
func ContentSelectors(p Platform) []string {
	return append(append([]string{}, platformContent[p]...), genericContent...)
}

// NoiseSelectors returns the selectors removed before text extraction.
func NoiseSelectors(p Platform) []string {
	return append(append([]string{}, genericNoise...), platformNoise[p]...)
}
