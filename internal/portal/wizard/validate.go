// internal/portal/wizard/validate.go
package wizard

import (
	"fmt"
	"strings"
	"time"

	"agritour-certification/internal/common/validation"
	"agritour-certification/internal/models"
)

// MinYear is the first certification year the program accepts.
const MinYear = 2020

// BasicInfoProblems lists what keeps info from being submittable. Drafts may hold
// incomplete info; only submission requires a clean result.
func BasicInfoProblems(info models.BasicInfo, now time.Time) []string {
	var problems []string
	required := []struct{ field, value string }{
		{"farmName", info.FarmName},
		{"ownerName", info.OwnerName},
		{"address", info.Address},
		{"city", info.City},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.field+" is required")
		}
	}
	if !validation.IsEmail(info.Email) {
		problems = append(problems, "email is invalid")
	}
	if !validation.IsTaiwanPhone(info.Phone) {
		problems = append(problems, "phone is not a Taiwan number")
	}
	if !info.Category.Valid() {
		problems = append(problems, "category is required")
	}
	for _, a := range info.AddOns {
		if !a.Valid() {
			problems = append(problems, fmt.Sprintf("unknown add-on %q", a))
		}
	}
	if info.Year < MinYear || info.Year > now.Year()+1 {
		problems = append(problems, fmt.Sprintf("year %d is out of range", info.Year))
	}
	return problems
}

// normalizeBasicInfo trims fields, normalizes the phone and de-duplicates add-ons.
// It rejects values that can never become valid: an unknown category or add-on.
func normalizeBasicInfo(info models.BasicInfo) (models.BasicInfo, error) {
	info.FarmName = strings.TrimSpace(info.FarmName)
	info.CompanyName = strings.TrimSpace(info.CompanyName)
	info.OwnerName = strings.TrimSpace(info.OwnerName)
	info.Email = strings.TrimSpace(info.Email)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	if info.Phone != "" {
		info.Phone = validation.NormalizePhone(info.Phone)
	}

	if info.Category != "" && !info.Category.Valid() {
		return info, fmt.Errorf("unknown category %q", info.Category)
	}

	seen := make(map[models.AddOnID]bool, len(info.AddOns))
	addOns := make([]models.AddOnID, 0, len(info.AddOns))
	for _, a := range info.AddOns {
		if !a.Valid() {
			return info, fmt.Errorf("unknown add-on %q", a)
		}
		if !seen[a] {
			seen[a] = true
			addOns = append(addOns, a)
		}
	}
	info.AddOns = addOns

	specialty := make([]string, 0, len(info.Specialty))
	for _, s := range info.Specialty {
		if s = strings.TrimSpace(s); s != "" {
			specialty = append(specialty, s)
		}
	}
	info.Specialty = specialty
	return info, nil
}
