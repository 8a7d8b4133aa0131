package toggle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	groupSeparator = ";"
	stripSeparator = ":"
	paramSeparator = ","
	invertPrefix   = "!"
)

var stripSelector = regexp.MustCompile(`(?i)^strip(\d+)`)

// Parse parses the cross-strip grammar:
//
//	Strip0:A1,!B1;Strip2:Mute
//
// Segments without exactly one ':' or with a selector that does not match
// "strip<N>" (case-insensitive) are skipped. An empty input yields no groups.
func Parse(raw string) []Group {
	var groups []Group
	if strings.TrimSpace(raw) == "" {
		return groups
	}

	for _, segment := range strings.Split(raw, groupSeparator) {
		parts := strings.Split(segment, stripSeparator)
		if len(parts) != 2 {
			if strings.TrimSpace(segment) != "" {
				log.Debug().Str("segment", segment).Msg("Skipping malformed toggle segment")
			}
			continue
		}

		match := stripSelector.FindStringSubmatch(strings.TrimSpace(parts[0]))
		if match == nil {
			log.Debug().Str("selector", parts[0]).Msg("Skipping toggle segment with unknown selector")
			continue
		}
		strip, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		groups = append(groups, Group{
			Strip:   strip,
			Entries: parseEntries(parts[1]),
		})
	}

	return groups
}

// ParseFlat parses the comma-only grammar used for the per-strip assign,
// mute and run overrides:
//
//	A1,!B1
//
// The result is a single group with Strip set to NoStrip; bind it with OnStrip.
func ParseFlat(raw string) Group {
	if strings.TrimSpace(raw) == "" {
		return Group{Strip: NoStrip}
	}
	return Group{Strip: NoStrip, Entries: parseEntries(raw)}
}

func parseEntries(raw string) []Entry {
	tokens := strings.Split(raw, paramSeparator)
	entries := make([]Entry, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		invert := strings.HasPrefix(token, invertPrefix)
		if invert {
			token = strings.TrimSpace(strings.TrimPrefix(token, invertPrefix))
		}
		if token == "" {
			continue
		}
		entries = append(entries, Entry{Param: token, Invert: invert})
	}
	return entries
}

// Format serializes groups back into the cross-strip grammar.
func Format(groups []Group) string {
	segments := make([]string, 0, len(groups))
	for _, g := range groups {
		segments = append(segments, fmt.Sprintf("Strip%d%s%s", g.Strip, stripSeparator, FormatEntries(g.Entries)))
	}
	return strings.Join(segments, groupSeparator)
}

// FormatEntries serializes entries into the comma-only grammar.
func FormatEntries(entries []Entry) string {
	tokens := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Invert {
			tokens = append(tokens, invertPrefix+e.Param)
		} else {
			tokens = append(tokens, e.Param)
		}
	}
	return strings.Join(tokens, paramSeparator)
}

// Validate drops groups whose strip index is outside [0, stripCount).
// Configuration is written by hand and the strip count depends on the
// detected mixer model, so out-of-range groups are logged and ignored.
func Validate(groups []Group, stripCount int) []Group {
	valid := make([]Group, 0, len(groups))
	for _, g := range groups {
		if g.Strip < 0 || g.Strip >= stripCount {
			log.Warn().
				Int("strip", g.Strip).
				Int("strip_count", stripCount).
				Msg("Toggle group references a strip the mixer does not have, ignoring")
			continue
		}
		valid = append(valid, g)
	}
	return valid
}
