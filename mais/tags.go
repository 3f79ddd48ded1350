package mais

import (
	"slices"
	"strings"
)

// AllowedTags are the sections the person endpoint can be asked to include.
var AllowedTags = []string{
	"name",
	"title",
	"email",
	"url",
	"location",
	"affiliation",
	"identifier",
	"privgroup",
	"profile",
	"visibility",
}

// ParseTags normalizes a tag selection. Each argument may itself be a
// comma-separated list. With no tags the full allow-list is returned.
// Values outside AllowedTags yield an *InvalidTagsError.
func ParseTags(tags ...string) ([]string, error) {
	var parsed []string
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				parsed = append(parsed, part)
			}
		}
	}

	if len(parsed) == 0 {
		return slices.Clone(AllowedTags), nil
	}

	var invalid []string
	for _, t := range parsed {
		if !slices.Contains(AllowedTags, t) {
			invalid = append(invalid, t)
		}
	}
	if len(invalid) > 0 {
		return nil, &InvalidTagsError{Invalid: invalid}
	}

	return parsed, nil
}
