package classifier

import (
	"regexp"

	"DailyReleases/internal/domain"
)

// Stopwords end the title. They are not reported unless they are also tags or highlights.
var Stopwords = WordList{
	{"update", `update`},
	{"version", `v[0-9]+`},
	{"build", `build[._-]?[0-9]+`},
	{"internal", `iNTERNAL`},
	{"incl", `incl`},
	{"standalone", `Standalone`},
	{"multilanguage", `Multilanguage`},
	{"dlc", `DLC`},
	{"dlc unlocker", `DLC[._-]?Unlocker`},
	{"steam edition", `Steam[._-]?Edition`},
	{"gog", `GOG`},
	{"macos", `mac[._-]?os[._-]?x?`},
	{"linux", `linux`},
}

// Tags distinguish otherwise identical releases (x86/x64, languages, RIP).
var Tags = WordList{
	{"hotfix", `Hotfix`},
	{"crackfix", `Crack[._-]?fix`},
	{"dirfix", `Dir[._-]?fix`},
	{"multi", `MULTI[._-]?[0-9]+`},
	{"arch", `x(?:86|64)`},
	{"bitness", `(?:86|64)[._-]?bit`},
	{"rip", `RIP`},
	{"repack", `REPACK`},
	{"german", `German`},
	{"czech", `Czech`},
	{"russian", `Russian`},
	{"korean", `Korean`},
	{"italian", `Italian`},
	{"swedish", `Swedish`},
	{"danish", `Danish`},
	{"french", `French`},
	{"slovak", `Slovak`},
}

// Highlights are notable flags rendered in bold.
var Highlights = WordList{
	{"proper", `PROPER`},
	{"readnfo", `READNFO`},
}

// Blacklist rejects software, media and console releases before any parsing.
var Blacklist = WordList{
	{"keygen", `Keygen`},
	{"keymaker", `Keymaker`},
	{"3ds", `[._-]3DS`},
	{"switch", `[._-]NSW`},
	{"ps4", `[._-]PS4`},
	{"psp", `[._-]PSP`},
	{"wii", `[._-]Wii`},
	{"wiiu", `[._-]WiiU`},
	{"x264", `x264`},
	{"720p", `720p`},
	{"1080p", `1080p`},
	{"ebook", `eBook`},
	{"tutorial", `TUTORIAL`},
	{"debian", `Debian`},
	{"ubuntu", `Ubuntu`},
	{"fedora", `Fedora`},
	{"opensuse", `openSUSE`},
	{"jquery", `jQuery`},
	{"css", `(?:^|[._-])CSS(?:[._-]|$)`},
	{"asp.net", `ASP[._-]NET`},
	{"windows server", `Windows[._-]Server`},
	{"lynda", `Lynda`},
	{"oreilly", `OREILLY`},
	{"wintellectnow", `Wintellectnow`},
	{"3ds max", `3ds[._-]?Max`},
	{"maya", `For[._-]Maya`},
	{"cinema4d", `Cinema4D`},
}

var (
	macPattern   = `(?i)mac[._-]?os[._-]?x?`
	linuxPattern = `(?i)linux`
)

// PlatformRules detects the platform; Windows is the fallback.
var PlatformRules = Cascade[domain.Platform]{
	Rules: []Rule[domain.Platform]{
		{Label: domain.PlatformOSX, Pattern: regexp.MustCompile(macPattern)},
		{Label: domain.PlatformLinux, Pattern: regexp.MustCompile(linuxPattern)},
	},
	Fallback: domain.PlatformWindows,
}

// CategoryRules detects the category. Update is checked before DLC because an
// update to a DLC is still an update, and "Incl.DLC" does not make a DLC release.
var CategoryRules = Cascade[domain.Category]{
	Rules: []Rule[domain.Category]{
		{
			Label:   domain.CategoryUpdate,
			Pattern: regexp.MustCompile(`(?i)update|v[0-9]|addon|Crack[._-]?fix|DIR[._-]?FIX|build[._-]?[0-9]+`),
		},
		{
			Label:    domain.CategoryDLC,
			Pattern:  regexp.MustCompile(`(?i)dlc`),
			NotAfter: regexp.MustCompile(`(?i)incl[._-]$`),
		},
	},
	Fallback: domain.CategoryGame,
}

// BlacklistRules yields the name of the first blacklisted word found.
var BlacklistRules = wordRules(Blacklist)

func wordRules(list WordList) Cascade[string] {
	rules := make([]Rule[string], 0, len(list))
	for _, term := range list {
		rules = append(rules, Rule[string]{
			Label:   term.Name,
			Pattern: regexp.MustCompile(`(?i)` + term.Pattern),
		})
	}
	return Cascade[string]{Rules: rules}
}
