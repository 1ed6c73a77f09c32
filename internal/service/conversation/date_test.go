package conversation

import "testing"

func TestValidateDate(t *testing.T) {
	valid := []string{
		"02-29-2024", // leap year
		"05-20-2024",
		"01-31-2024",
		"12-31-1999",
		"02-28-2023",
	}
	for _, input := range valid {
		if !ValidateDate(input) {
			t.Errorf("ValidateDate(%q) = false, want true", input)
		}
	}

	invalid := []string{
		"02-29-2023", // not a leap year
		"02-29-1900", // century, not divisible by 400
		"13-01-2024", // month out of range
		"01-32-2024", // day out of range
		"04-31-2024", // 30-day month
		"00-10-2024",
		"10-00-2024",
		"not-a-date",
		"2024-05-20", // year-first order
		"5-20-2024",  // single-digit month
		"",
	}
	for _, input := range invalid {
		if ValidateDate(input) {
			t.Errorf("ValidateDate(%q) = true, want false", input)
		}
	}
}

func TestValidateDateLeapCentury(t *testing.T) {
	if !ValidateDate("02-29-2000") {
		t.Fatal("2000 is divisible by 400 and is a leap year")
	}
}
