package submission

import (
	"fmt"
	"unicode/utf8"
)

// Validate checks every field of a form and returns either a Submission or
// a *ValidationError listing all failing fields, never both. Text lengths
// are counted in Unicode code points.
func Validate(form Form) (Submission, error) {
	verr := &ValidationError{}

	checkName(verr, form.Name)
	checkDescription(verr, form.Description)

	tiles, err := ValidateTiles(form.Tiles)
	if err != nil {
		verr.add(FieldTiles, TilesMessage(err))
	}

	if len(form.Images) != 1 {
		verr.add(FieldImage, "Please upload an image")
	}

	checkTags(verr, form.Tags)

	if !form.HumanVerified {
		verr.add(FieldHumanVerified, "Please confirm you are human")
	}

	if len(verr.Fields) > 0 {
		return Submission{}, verr
	}

	return Submission{
		Name:        form.Name,
		Description: form.Description,
		Tiles:       tiles,
		Image:       form.Images[0],
		Tags:        append([]string(nil), form.Tags...),
	}, nil
}

func checkName(verr *ValidationError, name string) {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		verr.add(FieldName, "Name is required")
	case n > MaxNameLength:
		verr.add(FieldName, fmt.Sprintf("Name must be at most %d characters", MaxNameLength))
	}
}

func checkDescription(verr *ValidationError, description string) {
	n := utf8.RuneCountInString(description)
	switch {
	case n < MinDescriptionLength:
		verr.add(FieldDescription, fmt.Sprintf("Description must be at least %d characters", MinDescriptionLength))
	case n > MaxDescriptionLength:
		verr.add(FieldDescription, fmt.Sprintf("Description must be at most %d characters", MaxDescriptionLength))
	}
}

func checkTags(verr *ValidationError, tags []string) {
	switch {
	case len(tags) < MinTags:
		verr.add(FieldTags, "Select at least 1 tag")
		return
	case len(tags) > MaxTags:
		verr.add(FieldTags, fmt.Sprintf("Select at most %d tags", MaxTags))
		return
	}
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			verr.add(FieldTags, fmt.Sprintf("Tag %q is selected more than once", tag))
			return
		}
		seen[tag] = true
	}
}
