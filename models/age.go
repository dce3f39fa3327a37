package models

import "fmt"

const (
	MinAge = 4
	MaxAge = 12

	youngMaxAge = 8
)

// AgeBand groups reader ages for illustration and typography choices.
type AgeBand string

const (
	AgeBandYoung AgeBand = "young" // 4-8
	AgeBandOlder AgeBand = "older" // 9-12
)

// AgeBandFor maps an age in [MinAge, MaxAge] to its band.
func AgeBandFor(age int) (AgeBand, error) {
	if age < MinAge || age > MaxAge {
		return "", fmt.Errorf("age must be between %d and %d, got %d", MinAge, MaxAge, age)
	}
	if age <= youngMaxAge {
		return AgeBandYoung, nil
	}
	return AgeBandOlder, nil
}

// BandOf is AgeBandFor without the range check: anything above the young
// band is treated as older.
func BandOf(age int) AgeBand {
	if age >= MinAge && age <= youngMaxAge {
		return AgeBandYoung
	}
	return AgeBandOlder
}
