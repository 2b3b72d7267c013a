package phonetic

// staticIPA holds common function words and contractions. These are either
// missing from online dictionaries or carry a citation-form pronunciation that
// is wrong in running speech, so they never go to the network.
var staticIPA = map[string]string{
	"a":       "ə",
	"am":      "æm",
	"an":      "ən",
	"and":     "ænd",
	"are":     "ɑːr",
	"as":      "æz",
	"at":      "æt",
	"be":      "biː",
	"but":     "bʌt",
	"by":      "baɪ",
	"can":     "kæn",
	"can't":   "kænt",
	"did":     "dɪd",
	"didn't":  "ˈdɪdənt",
	"do":      "duː",
	"does":    "dʌz",
	"doesn't": "ˈdʌzənt",
	"don't":   "doʊnt",
	"for":     "fɔːr",
	"from":    "frʌm",
	"had":     "hæd",
	"has":     "hæz",
	"have":    "hæv",
	"he":      "hiː",
	"he's":    "hiːz",
	"her":     "hɜːr",
	"him":     "hɪm",
	"his":     "hɪz",
	"i":       "aɪ",
	"i'd":     "aɪd",
	"i'll":    "aɪl",
	"i'm":     "aɪm",
	"i've":    "aɪv",
	"in":      "ɪn",
	"is":      "ɪz",
	"isn't":   "ˈɪzənt",
	"it":      "ɪt",
	"it's":    "ɪts",
	"let's":   "lɛts",
	"me":      "miː",
	"my":      "maɪ",
	"no":      "noʊ",
	"not":     "nɒt",
	"of":      "ʌv",
	"on":      "ɒn",
	"or":      "ɔːr",
	"our":     "aʊər",
	"she":     "ʃiː",
	"she's":   "ʃiːz",
	"so":      "soʊ",
	"that":    "ðæt",
	"that's":  "ðæts",
	"the":     "ðə",
	"their":   "ðɛər",
	"them":    "ðɛm",
	"there":   "ðɛər",
	"they":    "ðeɪ",
	"they're": "ðɛər",
	"this":    "ðɪs",
	"to":      "tuː",
	"us":      "ʌs",
	"was":     "wɒz",
	"we":      "wiː",
	"we're":   "wɪər",
	"were":    "wɜːr",
	"what":    "wɒt",
	"what's":  "wɒts",
	"will":    "wɪl",
	"with":    "wɪð",
	"won't":   "woʊnt",
	"yes":     "jɛs",
	"you":     "juː",
	"you're":  "jʊər",
	"your":    "jɔːr",
}
