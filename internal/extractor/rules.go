package extractor

import (
	"regexp"
	"strings"
)

// Rule is a single named pattern. Every capture group of the pattern is part of
// the extracted value; groups are joined with a single space.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Find returns the trimmed capture of the first match of the rule in text.
// A match whose capture is blank counts as no match.
func (r Rule) Find(text string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	parts := make([]string, 0, len(m)-1)
	for _, g := range m[1:] {
		if g = strings.TrimSpace(g); g != "" {
			parts = append(parts, g)
		}
	}
	value := strings.Join(parts, " ")
	if value == "" {
		return "", false
	}
	return value, true
}

// RuleSet is an ordered list of rules; the first rule that matches wins.
type RuleSet []Rule

// First evaluates the rules in order and returns the first value found along
// with the name of the rule that produced it.
func (rs RuleSet) First(text string) (value, rule string, ok bool) {
	for _, r := range rs {
		if v, found := r.Find(text); found {
			return v, r.Name, true
		}
	}
	return "", "", false
}

// AmountRule matches "<digits with separators>円". Full-width digits and
// separators are accepted and narrowed before parsing.
var AmountRule = Rule{
	Name:    "amount_yen",
	Pattern: regexp.MustCompile(`([0-9０-９]+[,.，．0-9０-９]*)円`),
}

// MerchantRules lists the merchant labels in priority order.
var MerchantRules = RuleSet{
	{
		Name:    "store_used",
		Pattern: regexp.MustCompile(`ご利用店舗[ \t]*[：:][ \t　]*([^\r\n]+)`),
	},
	{
		Name:    "affiliated_store",
		Pattern: regexp.MustCompile(`加盟店名[ \t]*[：:][ \t　]*([^\r\n]+)`),
	},
	{
		Name:    "legacy_paypay",
		Pattern: regexp.MustCompile(`PAYPAY\*?\(?([^)\r\n]+)`),
	},
}

// DateRule matches "YYYY-MM-DD HH:MM:SS".
var DateRule = Rule{
	Name:    "transaction_time",
	Pattern: regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})`),
}
