package version

// Tag and Commit are stamped at build time, e.g.
// go build -ldflags "-X github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/version.Tag=v1.2.3".
var (
	Tag    = "dev"
	Commit = ""
)

// String returns the build tag, suffixed with the short commit when known.
func String() string {
	tag := Tag
	if tag == "" {
		tag = "dev"
	}
	if len(Commit) > 7 {
		return tag + "+" + Commit[:7]
	}
	if Commit != "" {
		return tag + "+" + Commit
	}
	return tag
}
