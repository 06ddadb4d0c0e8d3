package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-xkcd-archive/models"
)

// unsafeChars are stripped from titles before they become filenames.
const unsafeChars = `/\:*?"<>|`

// ValidateComic ensures the fetcher captured the fields the store needs.
func ValidateComic(c *models.Comic) error {
	if c == nil {
		return fmt.Errorf("comic is nil")
	}
	if c.Num <= 0 {
		return fmt.Errorf("comic missing number")
	}
	if strings.TrimSpace(c.Year) == "" || strings.TrimSpace(c.Month) == "" || strings.TrimSpace(c.Day) == "" {
		return fmt.Errorf("comic %d missing publish date", c.Num)
	}
	if strings.TrimSpace(c.SafeTitle) == "" {
		return fmt.Errorf("comic %d missing title", c.Num)
	}
	return nil
}

// Date converts the record's year/month/day strings to a time.Time.
func Date(c *models.Comic) (time.Time, error) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Year))
	if err != nil {
		return time.Time{}, fmt.Errorf("comic %d: bad year %q: %w", c.Num, c.Year, err)
	}
	month, err := strconv.Atoi(strings.TrimSpace(c.Month))
	if err != nil {
		return time.Time{}, fmt.Errorf("comic %d: bad month %q: %w", c.Num, c.Month, err)
	}
	day, err := strconv.Atoi(strings.TrimSpace(c.Day))
	if err != nil {
		return time.Time{}, fmt.Errorf("comic %d: bad day %q: %w", c.Num, c.Day, err)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("comic %d: date %s-%s-%s out of range", c.Num, c.Year, c.Month, c.Day)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// SanitizeTitle removes every character that is illegal in filenames
// on common filesystems.
func SanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) {
			return -1
		}
		return r
	}, title)
}

// Extension returns the lowercased trailing segment of the image URL
// after the last dot, or "" if the URL has no dot.
func Extension(imageURL string) string {
	idx := strings.LastIndexByte(imageURL, '.')
	if idx < 0 || idx == len(imageURL)-1 {
		return ""
	}
	return strings.ToLower(imageURL[idx+1:])
}

// Filename builds the date-prefixed output filename for a record:
// "(YYYY-MM-DD) Title.ext" with zero-padded month and day.
func Filename(c *models.Comic) (string, error) {
	date, err := Date(c)
	if err != nil {
		return "", err
	}
	ext := Extension(c.ImageURL)
	if ext == "" {
		return "", fmt.Errorf("comic %d: image url %q has no extension", c.Num, c.ImageURL)
	}
	title := strings.TrimSpace(SanitizeTitle(c.SafeTitle))
	return fmt.Sprintf("(%s) %s.%s", date.Format("2006-01-02"), title, ext), nil
}
