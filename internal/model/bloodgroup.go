package model

import (
	"fmt"
	"strings"
)

// BloodGroup is one of the eight ABO/Rh combinations, written as "A+", "O-" and so on.
type BloodGroup string

const (
	GroupAPositive  BloodGroup = "A+"
	GroupANegative  BloodGroup = "A-"
	GroupBPositive  BloodGroup = "B+"
	GroupBNegative  BloodGroup = "B-"
	GroupABPositive BloodGroup = "AB+"
	GroupABNegative BloodGroup = "AB-"
	GroupOPositive  BloodGroup = "O+"
	GroupONegative  BloodGroup = "O-"
)

var BloodGroups = []BloodGroup{
	GroupAPositive, GroupANegative,
	GroupBPositive, GroupBNegative,
	GroupABPositive, GroupABNegative,
	GroupOPositive, GroupONegative,
}

func (g BloodGroup) Valid() bool {
	for _, known := range BloodGroups {
		if g == known {
			return true
		}
	}
	return false
}

// Code returns the URL and barcode safe form: "O-" -> "ON", "AB+" -> "ABP".
func (g BloodGroup) Code() string {
	s := string(g)
	if len(s) < 2 {
		return s
	}
	abo, rh := s[:len(s)-1], s[len(s)-1]
	switch rh {
	case '+':
		return abo + "P"
	case '-':
		return abo + "N"
	}
	return s
}

// ParseBloodGroup accepts both the "O-" and the "ON" notation, case-insensitive.
func ParseBloodGroup(s string) (BloodGroup, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, g := range BloodGroups {
		if v == string(g) || v == g.Code() {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: unknown blood group %q", ErrValidation, s)
}
