package validation

// knownProviders is the mail provider allowlist used by StrictPolicy.
// Grouped roughly by region; registration from throwaway domains was a
// recurring abuse vector on the live realm.
var knownProviders = map[string]struct{}{
	// Yandex
	"yandex.ru": {}, "yandex.com": {}, "yandex.by": {}, "yandex.kz": {},
	"yandex.ua": {}, "ya.ru": {},
	// Mail.ru group
	"mail.ru": {}, "inbox.ru": {}, "list.ru": {}, "bk.ru": {},
	"e.mail.ru": {}, "internet.ru": {},
	// Rambler and other RU
	"rambler.ru": {}, "rambler.ua": {}, "pochta.ru": {}, "narod.ru": {},
	// UA / BY / KZ
	"ukr.net": {}, "i.ua": {}, "meta.ua": {}, "bigmir.net": {},
	"online.ua": {}, "ukrpost.ua": {}, "mail.ua": {}, "email.ua": {},
	"tut.by": {}, "mail.by": {}, "mail.kz": {},
	// Google
	"gmail.com": {}, "googlemail.com": {},
	// Yahoo
	"yahoo.com": {}, "yahoo.co.uk": {}, "yahoo.fr": {}, "yahoo.de": {},
	// Microsoft
	"outlook.com": {}, "hotmail.com": {}, "hotmail.co.uk": {},
	"hotmail.fr": {}, "hotmail.de": {}, "live.com": {}, "msn.com": {},
	// Apple / Proton / misc international
	"icloud.com": {}, "me.com": {}, "mac.com": {},
	"protonmail.com": {}, "proton.me": {}, "zoho.com": {},
	"aol.com": {}, "mail.com": {}, "email.com": {}, "inbox.com": {},
	// German
	"gmx.com": {}, "gmx.de": {}, "gmx.net": {}, "web.de": {},
	"t-online.de": {}, "freenet.de": {},
	// French
	"orange.fr": {}, "wanadoo.fr": {}, "laposte.net": {}, "free.fr": {}, "sfr.fr": {},
	// Italian / Spanish
	"libero.it": {}, "virgilio.it": {}, "alice.it": {}, "tiscali.it": {},
	"terra.es": {}, "telefonica.net": {},
	// Polish / Czech / Slovak / Hungarian
	"wp.pl": {}, "o2.pl": {}, "interia.pl": {}, "onet.pl": {}, "gazeta.pl": {},
	"seznam.cz": {}, "centrum.cz": {}, "email.cz": {}, "post.cz": {},
	"azet.sk": {}, "centrum.sk": {}, "freemail.hu": {}, "citromail.hu": {},
	// British
	"btinternet.com": {}, "virgin.net": {}, "talk21.com": {},
}
