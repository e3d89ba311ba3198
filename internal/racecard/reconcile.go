package racecard

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	smallIntRe = regexp.MustCompile(`^\d{1,2}$`)
	letterRe   = regexp.MustCompile(`[A-Za-z\x{4e00}-\x{9fa5}]`)
	digitsRe   = regexp.MustCompile(`^\d+$`)
)

// reconcile applies the best-effort column corrections for rows where the
// draw and trainer columns arrived swapped, then sanity-filters the horse
// name. The draw correction is always tried first; the two rules are
// mutually exclusive because each requires the other's target to be empty.
func reconcile(raw map[Field]string) {
	draw := strings.TrimSpace(raw[FieldDraw])
	trainer := strings.TrimSpace(raw[FieldTrainer])

	if draw == "" && smallIntRe.MatchString(trainer) {
		if v, err := strconv.Atoi(trainer); err == nil && v >= 1 && v <= 20 {
			raw[FieldDraw] = trainer
			raw[FieldTrainer] = ""
			draw, trainer = trainer, ""
		}
	}
	if trainer == "" && draw != "" && letterRe.MatchString(draw) && !smallIntRe.MatchString(draw) {
		raw[FieldTrainer] = draw
		raw[FieldDraw] = ""
	}

	// Name sanity: a card-builder caption or a bare number captured in the
	// name column is noise, not an identity.
	name := strings.ReplaceAll(raw[FieldHorseName], " ", "")
	if containsAny(name, controlPhrases) || (name != "" && digitsRe.MatchString(name)) {
		raw[FieldHorseName] = ""
	}
}
