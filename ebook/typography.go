package ebook

import "github.com/coreybb/storybook/models"

const (
	StylePlayful = "playful"
	StyleFormal  = "formal"

	titleFontSize = 24
	leadingFactor = 1.2
)

// Typography is the font choice for one age band. Family names a TTF file
// (<Family>.ttf) looked up in the font directory; CoreFamily is the built-in
// PDF font used when that file is absent.
type Typography struct {
	Style      string
	Family     string
	CoreFamily string
	BodySize   float64
	TitleSize  float64
}

// Leading is the line height for body text.
func (t Typography) Leading() float64 {
	return t.BodySize * leadingFactor
}

// TypographyFor returns a larger, playful face for young readers and a
// smaller, formal one otherwise.
func TypographyFor(age int) Typography {
	if models.BandOf(age) == models.AgeBandYoung {
		return Typography{
			Style:      StylePlayful,
			Family:     "ComicSans",
			CoreFamily: "Helvetica",
			BodySize:   14,
			TitleSize:  titleFontSize,
		}
	}
	return Typography{
		Style:      StyleFormal,
		Family:     "TimesRoman",
		CoreFamily: "Times",
		BodySize:   12,
		TitleSize:  titleFontSize,
	}
}
