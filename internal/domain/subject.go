package domain

import "regexp"

// MarketSubject is the pseudo-subject scheduled whenever a committed chunk
// mentions the literal market token. It is never extracted as a tag.
const MarketSubject = "*market*"

// MarketToken is the literal token whose presence routes to MarketSubject.
const MarketToken = "MARKET"

// subjectStoplist filters common financial abbreviations that match the
// symbol shape but never name a tradable subject.
var subjectStoplist = map[string]struct{}{
	"CEO": {}, "CFO": {}, "CTO": {}, "COO": {},
	"FY": {}, "Q1": {}, "Q2": {}, "Q3": {}, "Q4": {},
	"EPS": {}, "IPO": {}, "ETF": {},
	"US": {}, "UK": {}, "EU": {},
	"AM": {}, "PM": {},
}

var (
	subjectPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	marketPattern  = regexp.MustCompile(`\bMARKET\b`)
	symbolShape    = regexp.MustCompile(`^[A-Z]{2,5}$`)
)

// IsSubjectSymbol reports whether s has the routing-key shape: uppercase
// alpha, length 2 to 5, not a stoplisted abbreviation.
func IsSubjectSymbol(s string) bool {
	if !symbolShape.MatchString(s) {
		return false
	}
	_, stopped := subjectStoplist[s]
	return !stopped
}

// ExtractSubjectTags returns the unique subject symbols mentioned in text,
// in first-occurrence order.
func ExtractSubjectTags(text string) []string {
	matches := subjectPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var tags []string
	for _, m := range matches {
		if _, ok := subjectStoplist[m]; ok {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		tags = append(tags, m)
	}
	return tags
}

// ContainsMarketToken reports whether text mentions the literal market token.
func ContainsMarketToken(text string) bool {
	return marketPattern.MatchString(text)
}
