// Package classify maps URLs to coarse intent categories.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/huangsam/stimstrain/schema"
)

// rule pairs a URL pattern with the category it yields. Rules are evaluated in order.
type rule struct {
	pattern  *regexp.Regexp
	category schema.Category
}

// xHost anchors x.com so hosts like netflix.com do not match.
const xHost = `(?:^|[/.])(?:twitter|x)\.com`

var rules = []rule{
	// YouTube
	{regexp.MustCompile(`(?i)youtube\.com/shorts/`), schema.CategoryYouTubeShorts},
	{regexp.MustCompile(`(?i)youtube\.com/watch\?v=`), schema.CategoryYouTubeWatch},
	{regexp.MustCompile(`(?i)youtube\.com/?$`), schema.CategoryYouTubeHome},
	{regexp.MustCompile(`(?i)youtube\.com`), schema.CategoryYouTubeOther},

	// X / Twitter
	{regexp.MustCompile(`(?i)` + xHost + `/search`), schema.CategoryXSearch},
	{regexp.MustCompile(`(?i)` + xHost + `/[^/]+/status`), schema.CategoryXThread},
	{regexp.MustCompile(`(?i)` + xHost + `/?$`), schema.CategoryXHome},
	{regexp.MustCompile(`(?i)` + xHost), schema.CategoryXOther},

	// Reddit
	{regexp.MustCompile(`(?i)reddit\.com/r/[^/]+/comments`), schema.CategoryRedditThread},
	{regexp.MustCompile(`(?i)reddit\.com`), schema.CategoryRedditFeed},

	// Instagram
	{regexp.MustCompile(`(?i)instagram\.com/reels?`), schema.CategoryInstagramReels},
	{regexp.MustCompile(`(?i)instagram\.com`), schema.CategoryInstagramOther},

	// TikTok
	{regexp.MustCompile(`(?i)tiktok\.com`), schema.CategoryTikTok},

	// Music
	{regexp.MustCompile(`(?i)spotify\.com`), schema.CategorySpotify},
	{regexp.MustCompile(`(?i)music\.apple\.com`), schema.CategoryMusic},
	{regexp.MustCompile(`(?i)soundcloud\.com`), schema.CategoryMusic},
	{regexp.MustCompile(`(?i)youtube\.com/music`), schema.CategoryMusic}, // shadowed by YOUTUBE_OTHER

	// Docs / work
	{regexp.MustCompile(`(?i)notion\.(?:so|ai)`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)docs\.google\.com`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)github\.com`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)jira\.[^/]+`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)figma\.com`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)linear\.app`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)confluence\.[^/]+`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)slack\.com`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)stackoverflow\.com`), schema.CategoryDocsWork},
	{regexp.MustCompile(`(?i)developer\.mozilla\.org`), schema.CategoryDocsWork},
}

var feedCategories = map[schema.Category]struct{}{
	schema.CategoryYouTubeShorts:  {},
	schema.CategoryYouTubeHome:    {},
	schema.CategoryYouTubeOther:   {},
	schema.CategoryXHome:          {},
	schema.CategoryXSearch:        {},
	schema.CategoryXOther:         {},
	schema.CategoryRedditFeed:     {},
	schema.CategoryInstagramReels: {},
	schema.CategoryTikTok:         {},
}

var stimulationCategories = map[schema.Category]struct{}{
	schema.CategorySpotify: {},
	schema.CategoryMusic:   {},
}

var workCategories = map[schema.Category]struct{}{
	schema.CategoryDocsWork: {},
}

// Classify returns the category of rawURL. Empty or unparsable input yields UNKNOWN,
// and a URL that matches no rule yields OTHER.
func Classify(rawURL string) schema.Category {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return schema.CategoryUnknown
	}
	if _, err := url.Parse(rawURL); err != nil {
		return schema.CategoryUnknown
	}
	for _, r := range rules {
		if r.pattern.MatchString(rawURL) {
			return r.category
		}
	}
	return schema.CategoryOther
}

// IsFeed reports whether c is an infinite-feed category.
func IsFeed(c schema.Category) bool {
	_, ok := feedCategories[c]
	return ok
}

// IsStimulation reports whether c is a music-like category.
func IsStimulation(c schema.Category) bool {
	_, ok := stimulationCategories[c]
	return ok
}

// IsWork reports whether c is a docs or work tool category.
func IsWork(c schema.Category) bool {
	_, ok := workCategories[c]
	return ok
}

// IsUnresolved reports whether c carries no useful information.
func IsUnresolved(c schema.Category) bool {
	return c == "" || c == schema.CategoryUnknown || c == schema.CategoryOther
}

// IsWebURL reports whether rawURL is an http or https URL.
func IsWebURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// UnknownDomain is the domain reported for URLs without a usable host.
const UnknownDomain = "unknown"

// DomainOf returns the hostname of rawURL without a leading "www.".
// Unparsable input yields UnknownDomain.
func DomainOf(rawURL string) string {
	if rawURL == "" {
		rawURL = "about:blank"
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return UnknownDomain
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
