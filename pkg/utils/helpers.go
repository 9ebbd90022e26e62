package utils

import (
	"strings"
)

func AreAddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
