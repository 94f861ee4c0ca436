// Package validation holds the answer format rules a text question can declare.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rule tags accepted in the questionnaire document
const (
	TagEmail            = "email"
	TagPhone            = "phone"
	TagNumber           = "number"
	TagFullName         = "full_name"
	TagTelegramUsername = "telegram_username"
	TagCadastralNumber  = "cadastral_number"
)

var ErrUnknownRule = errors.New("unknown validation rule")

// Rule is a named check with the hint shown when an answer fails it
type Rule struct {
	Tag   string
	Hint  string
	Check func(string) bool
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var rules = map[string]Rule{
	TagEmail: {
		Tag:   TagEmail,
		Hint:  "Please enter a valid email address, for example name@example.com.",
		Check: isEmail,
	},
	TagPhone: {
		Tag:   TagPhone,
		Hint:  "Please enter a phone number with 10 to 15 digits.",
		Check: isPhone,
	},
	TagNumber: {
		Tag:   TagNumber,
		Hint:  "Please enter a number.",
		Check: isNumber,
	},
	TagFullName: {
		Tag:   TagFullName,
		Hint:  "Please enter your full name: last name, first name and patronymic.",
		Check: isFullName,
	},
	TagTelegramUsername: {
		Tag:   TagTelegramUsername,
		Hint:  "Please enter your Telegram username starting with @.",
		Check: isTelegramUsername,
	},
	TagCadastralNumber: {
		Tag:   TagCadastralNumber,
		Hint:  "Please enter a cadastral number made of digits separated by colons, for example 50:21:0010101:123.",
		Check: isCadastralNumber,
	},
}

// Lookup returns the rule registered under tag
func Lookup(tag string) (Rule, bool) {
	r, ok := rules[tag]
	return r, ok
}

// Known reports whether tag names a rule
func Known(tag string) bool {
	_, ok := rules[tag]
	return ok
}

// Tags lists the registered rule tags in sorted order
func Tags() []string {
	out := make([]string, 0, len(rules))
	for t := range rules {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Validate checks value against the rule named by tag. An empty tag accepts everything.
// The returned hint is empty when the value passes.
func Validate(tag, value string) (ok bool, hint string, err error) {
	if tag == "" {
		return true, "", nil
	}
	r, found := rules[tag]
	if !found {
		return false, "", fmt.Errorf("%w: %q", ErrUnknownRule, tag)
	}
	if r.Check(value) {
		return true, "", nil
	}
	return false, r.Hint, nil
}

func isEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

var phoneStripper = strings.NewReplacer(" ", "", "\t", "", "(", "", ")", "", "-", "", "+", "")

func isPhone(s string) bool {
	digits := phoneStripper.Replace(strings.TrimSpace(s))
	if len(digits) < 10 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func isFullName(s string) bool {
	return len(strings.Fields(s)) >= 3
}

func isTelegramUsername(s string) bool {
	return strings.Contains(strings.TrimSpace(s), "@")
}

func isCadastralNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	var digit, colon bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r == ':':
			colon = true
		default:
			return false
		}
	}
	return digit && colon
}
