// Package crawl discovers downloadable publications on BPS index pages.
package crawl

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entry is one downloadable file found on an index page.
type Entry struct {
	Chapter      string // "III.3", "II"
	Title        string
	FileType     string // pdf or xls
	Size         string // as printed, "952 KB"
	SizeBytes    int64  // approximate, 0 when unknown
	ResolvedSize int64  // from the server, 0 when not probed
	Published    string // dd/mm/yyyy as printed
	Filename     string
	URL          string
	Page         string
}

// PublishedAt parses Published.
func (e Entry) PublishedAt() (time.Time, bool) {
	t, err := time.Parse("02/01/2006", e.Published)
	return t, err == nil
}

var (
	fileNameSep = regexp.MustCompile(`[^a-z0-9]+`)
	subChapter  = regexp.MustCompile(`\b([ivx]+)_(\d+)_`)
	romanOnly   = regexp.MustCompile(`\b([ivx]+)_`)
	arabicOnly  = regexp.MustCompile(`\b([1-5])_`)
	arabicRoman = []string{"", "I", "II", "III", "IV", "V"}
)

// ChapterFromFilename derives the chapter encoded in a file name: "iii_3_..." is III.3,
// "ii_..." is II and a leading "2_" is II.
func ChapterFromFilename(href string) string {
	name := strings.ToLower(path.Base(strings.SplitN(href, "?", 2)[0]))
	name = fileNameSep.ReplaceAllString(name, "_")
	if m := subChapter.FindStringSubmatch(name); m != nil {
		return strings.ToUpper(m[1]) + "." + m[2]
	}
	if m := romanOnly.FindStringSubmatch(name); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := arabicOnly.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return arabicRoman[n]
	}
	return ""
}

// ReconcileChapter prefers the chapter in the file name when it disagrees with the one
// read from the page.
func ReconcileChapter(fromPage, href string) string {
	fromFile := ChapterFromFilename(href)
	if fromPage == "" || (fromFile != "" && fromFile != fromPage) {
		return fromFile
	}
	return fromPage
}

var sizeUnitRe = regexp.MustCompile(`([\d.]+)\s*(KB|MB|B)`)

// ParseSize converts "952 KB" or "1,2 MB" to approximate bytes.
func ParseSize(s string) (int64, bool) {
	txt := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")))
	m := sizeUnitRe.FindStringSubmatch(txt)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "MB":
		n *= 1024 * 1024
	case "KB":
		n *= 1024
	}
	return int64(n), true
}

// FinalFilename returns the unescaped last path segment of a download URL.
func FinalFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// ChapterMatches reports whether chapter is want or one of its sub-chapters.
func ChapterMatches(chapter, want string) bool {
	chapter, want = strings.ToUpper(strings.TrimSpace(chapter)), strings.ToUpper(strings.TrimSpace(want))
	return chapter == want || strings.HasPrefix(chapter, want+".")
}

// PickLatest returns the most recently published entry of fileType in chapter. Entries
// without a readable date rank last.
func PickLatest(entries []Entry, chapter, fileType string) (Entry, bool) {
	var cand []Entry
	for _, e := range entries {
		if ChapterMatches(e.Chapter, chapter) && strings.EqualFold(e.FileType, fileType) {
			cand = append(cand, e)
		}
	}
	if len(cand) == 0 {
		return Entry{}, false
	}
	sort.SliceStable(cand, func(i, j int) bool {
		ti, oki := cand[i].PublishedAt()
		tj, okj := cand[j].PublishedAt()
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})
	return cand[0], true
}

// Dedupe keeps the first entry of each download URL.
func Dedupe(entries []Entry) []Entry {
	seen := map[string]bool{}
	var out []Entry
	for _, e := range entries {
		if e.URL == "" || seen[e.URL] {
			continue
		}
		seen[e.URL] = true
		out = append(out, e)
	}
	return out
}
