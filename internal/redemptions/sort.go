package redemptions

import (
	"fmt"
	"strings"
)

// SortColumn identifies a sortable column of the redemption listing.
type SortColumn string

const (
	SortRedeemedDate SortColumn = "redeemed_date"
	SortAmount       SortColumn = "amount"
	SortFees         SortColumn = "fees"
	SortCode         SortColumn = "code"
	SortRedeemedShop SortColumn = "redeemed_shop"
)

// FilterColumn identifies a text-filterable column of the redemption listing.
type FilterColumn string

const (
	FilterCode         FilterColumn = "code"
	FilterRedeemedShop FilterColumn = "redeemed_shop"
	FilterComment      FilterColumn = "comment"
)

var sortFields = map[SortColumn]string{
	SortRedeemedDate: "redemptions.redeemed_date",
	SortAmount:       "redemptions.amount",
	SortFees:         "redemptions.fees",
	SortCode:         "gift_cards.code",
	SortRedeemedShop: "redeemed_shop.name",
}

var filterFields = map[FilterColumn]string{
	FilterCode:         "gift_cards.code",
	FilterRedeemedShop: "redeemed_shop.name",
	FilterComment:      "redemptions.comment",
}

// ParseSortColumn resolves a client column id. Empty input selects the redemption date.
func ParseSortColumn(value string) (SortColumn, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return SortRedeemedDate, nil
	}
	col := SortColumn(value)
	if _, ok := sortFields[col]; !ok {
		return "", fmt.Errorf("unknown sort column %q", value)
	}
	return col, nil
}

// ParseFilterColumn resolves a client filter id.
func ParseFilterColumn(value string) (FilterColumn, error) {
	col := FilterColumn(strings.TrimSpace(value))
	if _, ok := filterFields[col]; !ok {
		return "", fmt.Errorf("unknown filter column %q", value)
	}
	return col, nil
}

func (c SortColumn) field() (string, bool) {
	field, ok := sortFields[c]
	return field, ok
}

func (c FilterColumn) field() (string, bool) {
	field, ok := filterFields[c]
	return field, ok
}
