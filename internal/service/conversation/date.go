package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var datePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

// ValidateDate checks a user-entered date in MM-DD-YYYY order. The dialogue
// engine's date prompts expect month first; DD-MM-YYYY input is rejected.
// After the explicit range checks the date is reconstructed through
// time.Date and must round-trip to the same components, which catches the
// combinations the explicit checks leave out.
func ValidateDate(input string) bool {
	if !datePattern.MatchString(input) {
		return false
	}

	parts := strings.Split(input, "-")
	month, _ := strconv.Atoi(parts[0])
	day, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])

	if month < 1 || month > 12 {
		return false
	}
	if day < 1 || day > 31 {
		return false
	}

	switch month {
	case 4, 6, 9, 11:
		if day > 30 {
			return false
		}
	case 2:
		leap := (year%4 == 0 && year%100 != 0) || year%400 == 0
		if day > 29 || (day == 29 && !leap) {
			return false
		}
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return date.Year() == year && date.Month() == time.Month(month) && date.Day() == day
}
