// crushnote/moderation/wordfilter_test.go
package moderation

import "testing"

func TestIsBlocked(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		blocked bool
	}{
		{"clean text", "Ich mag die Pause auf dem Schulhof", false},
		{"empty", "", false},
		{"plain insult", "du bist ein idiot", true},
		{"uppercase", "DU IDIOT", true},
		{"mixed case", "Du Vollpfosten!", true},
		{"term inside word stays clean", "die klasse fuhr zum mistelzweig-basteln", false},
		{"substring prefix stays clean", "das klassenzimmer", false},
		{"umlaut term", "so eine scheiße", true},
		{"umlaut term inside sentence", "scheiße gelaufen heute", true},
		{"leetspeak", "f1ck das", true},
		{"abbreviation", "hdf einfach", true},
		{"abbreviation inside word stays clean", "der hdfilm war gut", false},
		{"english insult", "what a bitch move", true},
		{"phrase", "kill dich einfach", true},
		{"phrase across line break", "kill\ndich", true},
		{"phrase words apart stays clean", "kill the mood, dich würde das auch nerven", false},
		{"threat verb", "ich werde dich töten", true},
		{"emoji", "nice one 🖕", true},
		{"emoji angry", "🤬🤬🤬", true},
		{"harmless emoji", "nice one 😊", false},
		{"excluded false friend dick", "der pulli ist zu dick", false},
		{"excluded false friend hell", "die lampe ist zu hell", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsBlocked(tc.input); got != tc.blocked {
				t.Errorf("IsBlocked(%q) = %v, want %v", tc.input, got, tc.blocked)
			}
		})
	}
}
