package persian

// stopwords is the fixed Persian stopword set dropped during normalization.
// The set is part of the normalization contract: changing it invalidates
// every cached normalized text, so additions require a full re-normalize.
var stopwords = map[string]struct{}{
	"و": {}, "در": {}, "به": {}, "از": {}, "که": {}, "این": {}, "را": {}, "با": {}, "است": {}, "برای": {},
	"آن": {}, "یک": {}, "خود": {}, "تا": {}, "کرد": {}, "بر": {}, "هم": {}, "نیز": {}, "ای": {}, "شد": {},
	"یا": {}, "هر": {}, "کن": {}, "دارد": {}, "ها": {}, "شده": {}, "بود": {}, "خواهد": {}, "شود": {},
	"باشد": {}, "می": {}, "کند": {}, "ان": {}, "کرده": {}, "کنند": {}, "گفت": {}, "بین": {}, "پیش": {},
	"پس": {}, "اگر": {}, "همه": {}, "صورت": {}, "یکی": {}, "هستند": {}, "بی": {}, "من": {}, "ما": {},
	"تو": {}, "شما": {}, "او": {}, "آنها": {}, "چه": {}, "چی": {}, "کجا": {}, "چرا": {}, "چگونه": {},
}
