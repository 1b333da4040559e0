package syllabus

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultReferenceLimit = 10
	defaultFlatLineLimit  = 40
	minReferenceLen       = 16
)

var (
	unitMarkerRe = regexp.MustCompile(`(?i)\b(unit|module|chapter)[ \t]*[-:.#]?[ \t]*(\d+|[ivx]+)\b`)

	// The keyword must end the line or be followed by a separator or list
	// number, so a topic such as "References and pointers" is not a heading.
	referenceHeadingRe = regexp.MustCompile(`(?im)^[ \t]*(?:\d+[.)][ \t]*)?(?:text[ \t]*books?|reference[ \t]*books?|references)[ \t]*(?:[:.\-–—]|\d+[.)]|\r?$)`)

	flatHeadingRe = regexp.MustCompile(`(?im)^[ \t]*(?:(?:course|detailed)[ \t]+)?(?:syllabus|contents?|topics)\b`)
)

var romanOrdinals = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5,
	"VI": 6, "VII": 7, "VIII": 8, "IX": 9, "X": 10,
}

// Unit is a block of syllabus text introduced by a Unit/Module/Chapter marker.
type Unit struct {
	Label   string // e.g. "Unit 3"
	Ordinal int    // 0 when the identifier is not recognised
	Content string
}

// Segmentation is the result of splitting a syllabus.
type Segmentation struct {
	Units      []Unit
	References []string
	// Flat holds the fallback content lines when the text has no unit markers.
	Flat         []string
	MarkersFound bool
}

// UnitRange is an inclusive ordinal filter. Zero bounds are open.
type UnitRange struct {
	Start int
	End   int
}

// Contains reports whether ordinal passes the filter.
func (r UnitRange) Contains(ordinal int) bool {
	if r.Start > 0 && ordinal < r.Start {
		return false
	}
	if r.End > 0 && ordinal > r.End {
		return false
	}
	return true
}

// ParseUnitRange parses caller-supplied bounds. Blank bounds are open; a
// bound that is not a number disables the whole filter.
func ParseUnitRange(start, end string) UnitRange {
	s, okS := parseBound(start)
	e, okE := parseBound(end)
	if !okS || !okE {
		slog.Debug("ignoring non-numeric unit range", "unit_start", start, "unit_end", end)
		return UnitRange{}
	}
	return UnitRange{Start: s, End: e}
}

func parseBound(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return max(n, 0), true
}

// Segmenter splits syllabus text into unit blocks and a references list.
type Segmenter struct {
	noise          *NoiseFilter
	referenceLimit int
	flatLineLimit  int
}

// NewSegmenter creates a segmenter. Non-positive limits use the defaults
// (10 references, 40 flat lines).
func NewSegmenter(noise *NoiseFilter, referenceLimit, flatLineLimit int) *Segmenter {
	if referenceLimit <= 0 {
		referenceLimit = defaultReferenceLimit
	}
	if flatLineLimit <= 0 {
		flatLineLimit = defaultFlatLineLimit
	}
	return &Segmenter{
		noise:          noise,
		referenceLimit: referenceLimit,
		flatLineLimit:  flatLineLimit,
	}
}

// Segment splits text into units filtered by r, plus candidate references.
// Unit markers are searched in the whole text. A references section runs
// from its heading to the next marker that starts a line, or to the end of
// the text; markers inside it are citations, not units.
func (s *Segmenter) Segment(text string, r UnitRange) Segmentation {
	var seg Segmentation

	sections := findReferences(text)
	for _, sec := range sections {
		seg.References = append(seg.References, s.collectReferences(text[sec.headEnd:sec.end])...)
	}
	if len(seg.References) > s.referenceLimit {
		seg.References = seg.References[:s.referenceLimit]
	}

	matches := unitMarkers(text, sections)
	if len(matches) == 0 {
		seg.Flat = s.FlatRegion(stripSections(text, sections))
		return seg
	}
	seg.MarkersFound = true

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		for _, sec := range sections {
			if sec.start >= m[1] && sec.start < end {
				end = sec.start
				break
			}
		}
		marker := text[m[2]:m[3]]
		ident := text[m[4]:m[5]]
		ord := unitOrdinal(ident)
		if !r.Contains(ord) {
			continue
		}
		seg.Units = append(seg.Units, Unit{
			Label:   unitLabel(marker, ident, ord),
			Ordinal: ord,
			Content: text[m[1]:end],
		})
	}
	return seg
}

// Body returns text with its references sections removed.
func (s *Segmenter) Body(text string) string {
	return stripSections(text, findReferences(text))
}

// refSection is a references block: the heading starts at start and its
// entries run from headEnd to end.
type refSection struct {
	start, headEnd, end int
}

func (r refSection) contains(i int) bool {
	return i >= r.start && i < r.end
}

// findReferences returns the references sections of text in order. Each
// ends at the next line-leading unit marker or the next heading.
func findReferences(text string) []refSection {
	headings := referenceHeadingRe.FindAllStringIndex(text, -1)
	if len(headings) == 0 {
		return nil
	}
	markers := unitMarkerRe.FindAllStringIndex(text, -1)

	sections := make([]refSection, 0, len(headings))
	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		for _, m := range markers {
			if m[0] >= h[1] && m[0] < end && startsLine(text, m[0]) {
				end = m[0]
				break
			}
		}
		sections = append(sections, refSection{start: h[0], headEnd: h[1], end: end})
	}
	return sections
}

// unitMarkers returns the marker submatches that fall outside sections.
func unitMarkers(text string, sections []refSection) [][]int {
	var kept [][]int
outer:
	for _, m := range unitMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		for _, sec := range sections {
			if sec.contains(m[0]) {
				continue outer
			}
		}
		kept = append(kept, m)
	}
	return kept
}

func stripSections(text string, sections []refSection) string {
	if len(sections) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, sec := range sections {
		b.WriteString(text[prev:sec.start])
		prev = sec.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

// startsLine reports whether only blanks precede offset i on its line.
func startsLine(text string, i int) bool {
	lineStart := strings.LastIndexByte(text[:i], '\n') + 1
	return strings.TrimSpace(text[lineStart:i]) == ""
}

// FlatRegion returns the lines after a syllabus/content/topics heading, or
// the whole text when there is no such heading, capped at the line limit.
func (s *Segmenter) FlatRegion(text string) []string {
	region := text
	if loc := flatHeadingRe.FindStringIndex(text); loc != nil {
		region = text[loc[1]:]
	}
	lines := strings.Split(region, "\n")
	if len(lines) > s.flatLineLimit {
		lines = lines[:s.flatLineLimit]
	}
	return lines
}

func (s *Segmenter) collectReferences(region string) []string {
	var refs []string
	for _, line := range strings.Split(region, "\n") {
		line = cleanLine(line)
		if s.noise.IsNoise(line) || utf8.RuneCountInString(line) < minReferenceLen {
			continue
		}
		refs = append(refs, line)
		if len(refs) == s.referenceLimit {
			break
		}
	}
	return refs
}

func unitOrdinal(ident string) int {
	if n, err := strconv.Atoi(ident); err == nil {
		return n
	}
	return romanOrdinals[strings.ToUpper(ident)]
}

func unitLabel(marker, ident string, ordinal int) string {
	title := cases.Title(language.English).String(strings.ToLower(marker))
	if ordinal > 0 {
		return title + " " + strconv.Itoa(ordinal)
	}
	return title + " " + strings.ToUpper(ident)
}
