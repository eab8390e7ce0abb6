package textfilter

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// substitutes maps a word to the milder text written on-chain instead.
var substitutes = map[string]string{
	"fuck":         "fudge",
	"motherfucker": "mother-trucker",
	"shit":         "shoot",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"dick":         "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"douchebag":    "jerk",
	"cock":         "[censored]",
	"pussy":        "[censored]",
	"whore":        "[censored]",
	"slut":         "[censored]",
	"retard":       "[censored]",
}

type rule struct {
	re   *regexp.Regexp
	with string
}

// Filter swaps profanity for milder words while keeping the original casing.
// It is safe for concurrent use.
type Filter struct {
	rules []rule
}

// New compiles the word list. Longer words are tried first so compounds
// get their own substitute.
func New() *Filter {
	words := make([]string, 0, len(substitutes))
	for w := range substitutes {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})

	f := &Filter{rules: make([]rule, 0, len(words))}
	for _, w := range words {
		f.rules = append(f.rules, rule{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `(s)?\b`),
			with: substitutes[w],
		})
	}
	return f
}

// Clean returns text with every listed word replaced, and whether anything changed.
func (f *Filter) Clean(text string) (string, bool) {
	changed := false
	for _, r := range f.rules {
		text = r.re.ReplaceAllStringFunc(text, func(match string) string {
			changed = true
			with := r.with
			if m := r.re.FindStringSubmatch(match); len(m) > 1 && m[1] != "" {
				with += "s"
			}
			return matchCase(match, with)
		})
	}
	return text, changed
}

// matchCase copies the casing pattern of original onto replacement.
func matchCase(original, replacement string) string {
	switch {
	case original == "":
		return replacement
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return strings.ToLower(replacement)
	}

	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	src := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(src) && unicode.IsUpper(src[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}

// AppliesTo reports whether a content rating requires filtering.
func AppliesTo(rating string) bool {
	switch strings.ToUpper(strings.TrimSpace(rating)) {
	case "G", "PG", "PG13", "PG-13":
		return true
	default:
		return false
	}
}
