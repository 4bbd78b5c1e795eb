package utils

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone returns the number in E.164 digits without the leading plus,
// which is the user part of a WhatsApp JID. Local numbers are parsed against
// defaultRegion (ISO 3166 alpha-2).
func NormalizePhone(raw, defaultRegion string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if at := strings.IndexByte(cleaned, '@'); at >= 0 {
		cleaned = cleaned[:at]
	}
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, cleaned)
	if strings.HasPrefix(cleaned, "00") {
		cleaned = "+" + cleaned[2:]
	}
	if cleaned == "" {
		return "", ErrInvalidPhone
	}

	candidates := []string{cleaned}
	if !strings.HasPrefix(cleaned, "+") {
		// numbers pasted from WhatsApp exports already carry the country code
		candidates = append(candidates, "+"+cleaned)
	}

	for _, candidate := range candidates {
		region := defaultRegion
		if strings.HasPrefix(candidate, "+") {
			region = ""
		}
		num, err := phonenumbers.Parse(candidate, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			continue
		}
		return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
	}
	return "", ErrInvalidPhone
}

// NormalizeRecipients normalizes and de-duplicates a recipient list, keeping
// input order. Entries that cannot be parsed are returned separately.
func NormalizeRecipients(raw []string, defaultRegion string) (valid []string, invalid []string) {
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		phone, err := NormalizePhone(r, defaultRegion)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		valid = append(valid, phone)
	}
	return valid, invalid
}

// RegionOf returns the ISO region of a normalized number, or "" when unknown.
func RegionOf(phone string) string {
	num, err := phonenumbers.Parse("+"+strings.TrimPrefix(phone, "+"), "")
	if err != nil {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(num)
}
