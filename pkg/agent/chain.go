package agent

import (
	"regexp"
	"strings"
)

// Relative-date keyword patterns in fixed priority: weekday names first,
// then tomorrow with its common misspellings, then yesterday, then today.
// At most one keyword is selected per message.
var dateKeywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:next\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	regexp.MustCompile(`(?i)\b(?:tomorrow|tommor\w*|tmrw|tmr)\b`),
	regexp.MustCompile(`(?i)\byesterday\b`),
	regexp.MustCompile(`(?i)\btoday\b`),
}

var (
	partOfDayPattern  = regexp.MustCompile(`(?i)\b(morning|afternoon|evening)\b`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	successKeywords   = regexp.MustCompile(`(?i)successfully|registered|created|added`)
	nonLetterPattern  = regexp.MustCompile(`[^a-zA-Z ]`)
	trailingDateToken = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*$`)
)

// selectDateKeyword returns the highest-priority relative-date keyword in
// the message, or "" if none is present.
func selectDateKeyword(message string) string {
	for _, pattern := range dateKeywordPatterns {
		if m := pattern.FindString(message); m != "" {
			return m
		}
	}
	return ""
}

// rewriteMessage replaces every case-insensitive occurrence of the selected
// keyword, optionally followed by a possessive 's, with the resolved date.
// All other characters are preserved exactly.
func rewriteMessage(message, keyword, resolvedDate string) string {
	pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(keyword) + `(?:'s)?`)
	if err != nil {
		return message
	}
	return pattern.ReplaceAllString(message, resolvedDate)
}

// extractResolvedDate pulls the trailing ISO date out of a date-resolution
// reply.
func extractResolvedDate(text string) string {
	if m := trailingDateToken.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// extractPartOfDay finds a time-of-day term in the message, or "".
func extractPartOfDay(message string) string {
	return strings.ToLower(partOfDayPattern.FindString(message))
}

// extractEmail finds the first email address in the message, or "".
func extractEmail(message string) string {
	return emailPattern.FindString(message)
}

// isRegistrationSuccess reports whether a registration reply signals that
// the patient now exists.
func isRegistrationSuccess(text string) bool {
	return successKeywords.MatchString(text)
}

// displayNameFromEmail derives a human-looking name from the local part of
// an email address: separators become spaces, digits and symbols are
// stripped, remaining words are title-cased. If nothing survives, the
// fallback is "User <localpart>".
func displayNameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}

	spaced := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	cleaned := nonLetterPattern.ReplaceAllString(spaced, "")

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return "User " + local
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
