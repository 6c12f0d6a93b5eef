package enums

import "fmt"

// GiftCardMode is the issuance state of a gift card.
type GiftCardMode string

const (
	GiftCardModeLive  GiftCardMode = "LIVE"
	GiftCardModeTest  GiftCardMode = "TEST"
	GiftCardModeDraft GiftCardMode = "DRAFT"
)

var validGiftCardModes = []GiftCardMode{
	GiftCardModeLive,
	GiftCardModeTest,
	GiftCardModeDraft,
}

// String implements fmt.Stringer.
func (m GiftCardMode) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m GiftCardMode) IsValid() bool {
	for _, candidate := range validGiftCardModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseGiftCardMode converts raw input into a GiftCardMode.
func ParseGiftCardMode(value string) (GiftCardMode, error) {
	for _, candidate := range validGiftCardModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gift card mode %q", value)
}
