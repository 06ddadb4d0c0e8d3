package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-xkcd-archive/models"
)

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "clean title untouched", title: "Barrel - Part 1", want: "Barrel - Part 1"},
		{name: "strips path separators and punctuation", title: `A/B: Test?`, want: "AB Test"},
		{name: "strips every unsafe character", title: `a/b\c:d*e?f"g<h>i|j`, want: "abcdefghij"},
		{name: "empty stays empty", title: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeTitle(tt.title); got != tt.want {
				t.Fatalf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://imgs.xkcd.com/comics/barrel_cropped_(1).jpg", want: "jpg"},
		{url: "http://x/test.PNG", want: "png"},
		{url: "http://x/animated.gif", want: "gif"},
		{url: "http://x/no-extension", want: ""},
		{url: "http://x/trailing-dot.", want: ""},
	}

	for _, tt := range tests {
		if got := Extension(tt.url); got != tt.want {
			t.Fatalf("Extension(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDate(t *testing.T) {
	c := &models.Comic{Num: 1, Year: "2006", Month: "1", Day: "1"}
	got, err := Date(c)
	if err != nil {
		t.Fatalf("date: %v", err)
	}
	want := time.Date(2006, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("date = %v, want %v", got, want)
	}
}

func TestDateRejectsMalformedValues(t *testing.T) {
	tests := []struct {
		name  string
		comic *models.Comic
	}{
		{name: "non-numeric year", comic: &models.Comic{Num: 1, Year: "twenty", Month: "1", Day: "1"}},
		{name: "non-numeric month", comic: &models.Comic{Num: 1, Year: "2006", Month: "Jan", Day: "1"}},
		{name: "month out of range", comic: &models.Comic{Num: 1, Year: "2006", Month: "13", Day: "1"}},
		{name: "day out of range", comic: &models.Comic{Num: 1, Year: "2006", Month: "1", Day: "32"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Date(tt.comic); err == nil {
				t.Fatalf("expected error for %+v", tt.comic)
			}
		})
	}
}

func TestFilenameZeroPadsMonthAndDay(t *testing.T) {
	c := &models.Comic{
		Num:       1,
		Year:      "2006",
		Month:     "1",
		Day:       "1",
		SafeTitle: "Test",
		ImageURL:  "http://x/test.png",
	}

	got, err := Filename(c)
	if err != nil {
		t.Fatalf("filename: %v", err)
	}
	if want := "(2006-01-01) Test.png"; got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
}

func TestFilenameSanitizesTitle(t *testing.T) {
	c := &models.Comic{
		Num:       207,
		Year:      "2007",
		Month:     "12",
		Day:       "31",
		SafeTitle: `What/If: Part?2`,
		ImageURL:  "https://imgs.xkcd.com/comics/what_if.jpg",
	}

	got, err := Filename(c)
	if err != nil {
		t.Fatalf("filename: %v", err)
	}
	if want := "(2007-12-31) WhatIf Part2.jpg"; got != want {
		t.Fatalf("filename = %q, want %q", got, want)
	}
}

func TestFilenameRequiresExtension(t *testing.T) {
	c := &models.Comic{
		Num:       5,
		Year:      "2006",
		Month:     "1",
		Day:       "1",
		SafeTitle: "Test",
		ImageURL:  "http://x/no-extension",
	}
	if _, err := Filename(c); err == nil || !strings.Contains(err.Error(), "extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestValidateComic(t *testing.T) {
	valid := &models.Comic{Num: 1, Year: "2006", Month: "1", Day: "1", SafeTitle: "Test"}
	if err := ValidateComic(valid); err != nil {
		t.Fatalf("valid comic rejected: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*models.Comic)
		wantErr string
	}{
		{name: "missing number", mutate: func(c *models.Comic) { c.Num = 0 }, wantErr: "number"},
		{name: "missing year", mutate: func(c *models.Comic) { c.Year = "" }, wantErr: "date"},
		{name: "missing title", mutate: func(c *models.Comic) { c.SafeTitle = " " }, wantErr: "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *valid
			tt.mutate(&c)
			if err := ValidateComic(&c); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := ValidateComic(nil); err == nil {
		t.Fatalf("nil comic should be rejected")
	}
}
