package store

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrSlugInvalid is returned when slug text does not match the required pattern.
	ErrSlugInvalid = errors.New("slug must match [a-z0-9][a-z0-9-]*[a-z0-9]")

	// ErrSlugReserved is returned when a user slug collides with a route.
	ErrSlugReserved = errors.New("slug is reserved and cannot be used")

	slugRe      = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-]*[a-z0-9])?$`)
	slugStripRe = regexp.MustCompile(`[^a-z0-9-]`)

	reservedSlugs = map[string]bool{
		"api":      true,
		"category": true,
		"static":   true,
		"metrics":  true,
		"guest":    true,
	}
)

// DeriveSlug derives URL-safe slug text from a display name:
// lowercase, spaces and underscores to hyphens, strip non-[a-z0-9-].
func DeriveSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = slugStripRe.ReplaceAllString(s, "")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// ValidateSlugFormat checks that slug text conforms to the required format.
func ValidateSlugFormat(slug string) error {
	if !slugRe.MatchString(slug) {
		return ErrSlugInvalid
	}
	return nil
}

// ValidateUserslug is ValidateSlugFormat plus the reserved-word check that
// keeps user profile paths from shadowing site routes.
func ValidateUserslug(slug string) error {
	if err := ValidateSlugFormat(slug); err != nil {
		return err
	}
	if reservedSlugs[slug] {
		return fmt.Errorf("%w: %q", ErrSlugReserved, slug)
	}
	return nil
}
