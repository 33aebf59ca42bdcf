package usecase

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var (
	bracketedRe = regexp.MustCompile(`[\[(][^)\]]*[)\]]`)
	yearRe      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	separatorRe = regexp.MustCompile(`[._\-]+`)
	spacesRe    = regexp.MustCompile(`\s+`)
)

// Release tokens commonly embedded in video filenames. Everything from the
// first matched token onward is metadata, not title.
var releaseTokens = map[string]bool{
	"480p": true, "720p": true, "1080p": true, "2160p": true, "4k": true,
	"x264": true, "x265": true, "h264": true, "h265": true, "hevc": true, "avc": true,
	"bluray": true, "bdrip": true, "brrip": true, "webrip": true, "webdl": true,
	"web": true, "hdtv": true, "dvdrip": true, "remux": true, "hdr": true,
	"aac": true, "ac3": true, "dts": true, "proper": true, "repack": true,
}

// ParseTitle extracts a display title and release year from a raw video
// filename: extension and bracketed tags stripped, separators collapsed to
// spaces, release tokens cut off, remaining words title-cased. Year is 0 when
// no 19xx/20xx token is present.
func ParseTitle(filename string) (title string, year int) {
	name := strings.TrimSuffix(filename, path.Ext(filename))

	if m := yearRe.FindString(name); m != "" {
		year, _ = strconv.Atoi(m)
	}

	name = bracketedRe.ReplaceAllString(name, " ")
	name = yearRe.ReplaceAllString(name, " ")
	name = separatorRe.ReplaceAllString(name, " ")

	words := strings.Fields(name)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if releaseTokens[strings.ToLower(w)] {
			break
		}
		kept = append(kept, titleCase(w))
	}

	title = spacesRe.ReplaceAllString(strings.Join(kept, " "), " ")
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(filename, path.Ext(filename))
	}
	return title, year
}

func titleCase(word string) string {
	r := []rune(word)
	if len(r) == 0 {
		return word
	}
	// Leave all-caps acronyms and mixed-case words alone.
	if word != strings.ToLower(word) {
		return word
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
