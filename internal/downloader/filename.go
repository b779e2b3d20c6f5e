package downloader

import (
	"strings"
	"unicode"
)

// MaxTitleLength bounds the title portion of a media file name.
const MaxTitleLength = 100

// SanitizeTitle keeps letters, numbers, space, hyphen and underscore, cuts the
// result to MaxTitleLength runes and drops trailing whitespace.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	runes := []rune(strings.TrimRight(b.String(), " "))
	if len(runes) > MaxTitleLength {
		runes = runes[:MaxTitleLength]
	}
	return strings.TrimRight(string(runes), " ")
}

// FileBase is the extension-less media file name for a video. The id suffix
// keeps names unique when titles collide.
func FileBase(title, remoteID string) string {
	return SanitizeTitle(title) + "_" + remoteID
}

// partialSuffixes are left behind by interrupted downloads and never count as
// an archived file.
var partialSuffixes = []string{".part", ".ytdl", ".temp", ".tmp"}

// matchesBase reports whether name is base plus exactly one extension.
func matchesBase(name, base string) bool {
	if !strings.HasPrefix(name, base+".") {
		return false
	}
	for _, s := range partialSuffixes {
		if strings.HasSuffix(name, s) {
			return false
		}
	}
	ext := strings.TrimPrefix(name, base+".")
	return ext != "" && !strings.Contains(ext, ".")
}
