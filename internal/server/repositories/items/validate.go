package items

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

var phoneRx = regexp.MustCompile(`^[0-9]{10}$`)

// Normalize trims surrounding whitespace from every client-supplied field.
func Normalize(d models.ItemDraft) models.ItemDraft {
	return models.ItemDraft{
		Title:         strings.TrimSpace(d.Title),
		Description:   strings.TrimSpace(d.Description),
		Type:          models.ItemType(strings.ToLower(strings.TrimSpace(string(d.Type)))),
		Location:      strings.TrimSpace(d.Location),
		ContactEmail:  strings.TrimSpace(d.ContactEmail),
		ContactPhone:  strings.TrimSpace(d.ContactPhone),
		HostelAddress: strings.TrimSpace(d.HostelAddress),
	}
}

// Validate checks the client-supplied fields of a submission and returns
// one message per offending field, or nil.
func Validate(d models.ItemDraft) common.ValidationError {
	errs := common.ValidationError{}

	required := map[string]string{
		"title":        d.Title,
		"description":  d.Description,
		"location":     d.Location,
		"contactEmail": d.ContactEmail,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			errs[field] = "is required"
		}
	}

	switch {
	case d.Type == "":
		errs["type"] = "is required"
	case !d.Type.Valid():
		errs["type"] = "must be one of lost, found"
	}

	if _, missing := errs["contactEmail"]; !missing && !govalidator.IsEmail(d.ContactEmail) {
		errs["contactEmail"] = "must be a valid email address"
	}

	if d.ContactPhone != "" && !phoneRx.MatchString(d.ContactPhone) {
		errs["contactPhone"] = "must be exactly 10 digits"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateItem(item *models.Item) error {
	errs := Validate(models.ItemDraft{
		Title:         item.Title,
		Description:   item.Description,
		Type:          item.Type,
		Location:      item.Location,
		ContactEmail:  item.ContactEmail,
		ContactPhone:  item.ContactPhone,
		HostelAddress: item.HostelAddress,
	})
	if strings.TrimSpace(item.ImageURL) == "" {
		if errs == nil {
			errs = common.ValidationError{}
		}
		errs["imageUrl"] = "is required"
	}
	if item.Status != "" && item.Status != models.ItemStatusOpen && item.Status != models.ItemStatusResolved {
		if errs == nil {
			errs = common.ValidationError{}
		}
		errs["status"] = "must be one of open, resolved"
	}
	if errs == nil {
		return nil
	}
	return errs
}
