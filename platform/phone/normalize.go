// Package phone normalises lead phone numbers for the WhatsApp gateway.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Leads are registered by Brazilian agencies; numbers without a country
// code are read as BR.
const defaultRegion = "BR"

// WhatsAppJID returns the digits-only address used by WhatsApp gateways,
// or false when the number cannot be parsed as a valid number.
func WhatsAppJID(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "", false
	}
	return strings.TrimPrefix(phonenumbers.Format(number, phonenumbers.E164), "+"), true
}
