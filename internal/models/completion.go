package models

import (
	"math"
	"strings"
)

func countFilled(values ...string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// ProfileCompletion computes the informational completion percentage (0-100) for
// customers and creators. Other roles report 0.
func ProfileCompletion(a *Account) int {
	switch p := a.Profile.(type) {
	case *CustomerProfile:
		filled := countFilled(a.DisplayName, a.Email, p.Phone, a.ProfileImageURL, p.PreferredLanguage)
		return int(math.Round(float64(filled) / 5 * 100))
	case *CreatorProfile:
		required := countFilled(a.DisplayName, a.Email, p.BusinessName)
		optional := countFilled(p.Phone, a.ProfileImageURL, p.BusinessDescription)
		if p.SocialMediaLinks.Any() {
			optional++
		}
		return int(math.Round(float64(required)/3*70 + float64(optional)/4*30))
	}
	return 0
}

// RefreshCompletion stores the current completion percentage on the profile.
func (a *Account) RefreshCompletion() {
	switch p := a.Profile.(type) {
	case *CustomerProfile:
		p.ProfileCompletion = ProfileCompletion(a)
	case *CreatorProfile:
		p.ProfileCompletion = ProfileCompletion(a)
	}
}
