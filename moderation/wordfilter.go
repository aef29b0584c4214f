// crushnote/moderation/wordfilter.go
package moderation

import (
	"regexp"
	"strings"
)

// blockedTerms is the lexical blocklist applied to every post and comment
// before it is accepted. German-first, with English, abbreviations,
// leetspeak, slurs, threats, and emojis.
var blockedTerms = []string{
	// German insults
	"arsch", "arschloch", "arschgeige", "arschkriecher", "arschgesicht", "arschficker",
	"affe", "affenpimmel", "affenarsch",
	"bastard", "blödmann", "blöde", "blödkopf", "blödsack", "blödian",
	"depp", "dummschwätzer", "dummkopf", "dummbeutel", "dussel", "dummerchen", "dummbatz",
	"drecksack", "drecksau", "drecksstück", "dreckskerl", "dreckstück", "drecksvieh",
	"fotze", "ficker", "fick", "ficken", "fick dich", "fickt euch", "fickstück",
	"hure", "hurensohn", "hurentochter", "hund", "hündin", "hundsfott",
	"idiot", "idiotin", "idiotisch",
	"kacke", "kack", "kacker", "kackbratze", "kackstelze", "kackhaufen",
	"kriecher", "kümmerling",
	"lusche", "lurch", "luser",
	"mist", "miststück", "mistkerl", "mistfink", "mistvieh", "misthund", "mistkäfer",
	"missgeburt", "misgeburt",
	"nutte", "nichtsnutz", "nulpe",
	"pisser", "piss", "pissnelke", "pisskerl", "pissfresse", "pissgesicht",
	"penner", "pfeife", "pflaume",
	"rotznase", "rotzlöffel", "rotz", "rotzig",
	"schlampe", "schlampen",
	"schwein", "schweinehund", "schweinebacke", "saublöd", "saudumm", "sau", "saubacke",
	"scheiße", "scheiss", "scheiß", "schleimscheißer", "schwachkopf", "schwachmat", "schwachmatt",
	"spasti", "spast", "spacken", "spacko", "spack", "spastisch",
	"trottel", "tussi", "tusse", "trottelig",
	"verpiss dich", "verpiss", "vollidiot", "vollpfosten", "volltrottel", "vollhonk",
	"wichser", "wixer", "wixxer", "wichs",
	"ziege", "zicke", "zimtzicke", "zickig",
	// English insults. "dick" is excluded (German: fat), "hell" too (German: bright).
	"fuck", "fucking", "fucker", "motherfucker", "bitch", "slut", "whore",
	"shit", "bullshit", "dumbass", "asshole", "asshat", "jackass",
	"pussy", "cock", "cunt", "twat", "wanker", "dickhead",
	// Abbreviations
	"hdf", "fickdich", "fick_dich", "stfu", "gtfo",
	// Leetspeak
	"4rsch", "4rschloch", "sch3iße", "sch3isse", "f1cker", "f1ck",
	// Slurs
	"opfer", "behindert", "behindi",
	"schwuchtel", "kanake", "kanacke", "kanak",
	"zigeuner", "neger", "bimbo", "krüppel",
	"mong", "mongoid", "retard", "retarded",
	// Threats
	"kill dich", "bring dich um", "umbringen", "töten",
	"vergewaltigung", "vergewaltigen", "vergewaltigt",
	"erschlagen", "ermorden", "umlegen", "abschlachten",
	// Number codes
	"acab", "1312", "187", "69", "666",
	// Emojis
	"🖕", "🤬", "🍆", "🍑", "💩",
}

// wordPattern matches terms whose edges are ASCII word characters, with
// \b anchors so "mist" stays quiet inside "mistelzweig".
var wordPattern *regexp.Regexp

// substringTerms holds terms \b cannot anchor: emojis and terms whose
// first or last rune is outside [0-9A-Za-z_], like "scheiße" (regexp word
// boundaries are ASCII-only, so \bscheiße\b would never match).
var substringTerms []string

var spaceRun = regexp.MustCompile(`\s+`)

func init() {
	var wordTerms []string
	for _, term := range blockedTerms {
		if hasWordEdges(term) {
			wordTerms = append(wordTerms, regexp.QuoteMeta(term))
		} else {
			substringTerms = append(substringTerms, term)
		}
	}
	wordPattern = regexp.MustCompile(`\b(` + strings.Join(wordTerms, "|") + `)\b`)
}

func hasWordEdges(term string) bool {
	runes := []rune(term)
	return isASCIIWord(runes[0]) && isASCIIWord(runes[len(runes)-1])
}

func isASCIIWord(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}

// IsBlocked reports whether the text contains a blocklisted term. Matching
// is case-insensitive and whitespace runs are collapsed so multi-word
// phrases match across line breaks.
func IsBlocked(text string) bool {
	normalized := spaceRun.ReplaceAllString(strings.ToLower(text), " ")
	if wordPattern.MatchString(normalized) {
		return true
	}
	for _, term := range substringTerms {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}
