package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateDeviceInfo checks the device selection before it enters a session.
func ValidateDeviceInfo(d DeviceInfo) error {
	if !ValidDeviceCategories[d.Category] {
		return NewValidationError("category", string(d.Category), ErrUnknownCategory)
	}
	return nil
}

// ValidatePhoto checks a captured photo's role and payload format.
func ValidatePhoto(p CapturedPhoto) error {
	switch p.Role {
	case RoleFront, RoleProblem, RoleDetail:
	default:
		return NewValidationError("type", string(p.Role), ErrUnknownRole)
	}
	if _, _, err := ParseDataURL(p.DataURL); err != nil {
		return err
	}
	return nil
}

var dataURLPattern = regexp.MustCompile(`^data:(image/[a-z]+);base64,(.+)$`)

// ParseDataURL splits a base64 image data URI into (mimeType, payload).
func ParseDataURL(dataURL string) (mimeType, payload string, err error) {
	m := dataURLPattern.FindStringSubmatch(dataURL)
	if m == nil {
		return "", "", NewValidationError("dataUrl", truncate(dataURL, 40), ErrInvalidDataURL)
	}
	return m[1], m[2], nil
}

// ValidateAnalysis is the structural gate applied immediately after parsing
// an AI response. It rejects enum values outside the contract, confidence
// and annotation coordinates out of range, and step numbers that are not
// dense 1-based positions, so malformed model output surfaces as a classified
// error instead of rendering as blanks downstream.
func ValidateAnalysis(a Analysis) error {
	if err := validateDiagnosis(a.Diagnosis); err != nil {
		return err
	}
	for i, s := range a.Steps {
		if err := validateStep(i, s); err != nil {
			return err
		}
	}
	for i, p := range a.Parts {
		if err := validatePart(i, p); err != nil {
			return err
		}
	}
	for i, tool := range a.Tools {
		if tool.Name == "" {
			return NewValidationError(fmt.Sprintf("tools[%d].name", i), "", ErrMissingField)
		}
	}
	return nil
}

func validateDiagnosis(d DiagnosisResult) error {
	for i, dmg := range d.Damages {
		if dmg.Type == "" {
			return NewValidationError(fmt.Sprintf("damages[%d].type", i), "", ErrMissingField)
		}
		if !validSeverities[dmg.Severity] {
			return NewValidationError(fmt.Sprintf("damages[%d].severity", i), string(dmg.Severity), ErrInvalidSeverity)
		}
	}
	if !validDifficulties[d.Difficulty] {
		return NewValidationError("diagnosis.difficulty", string(d.Difficulty), ErrInvalidDifficulty)
	}
	if !validRepairabilities[d.Repairability] {
		return NewValidationError("diagnosis.repairability", string(d.Repairability), ErrInvalidRepairability)
	}
	if d.Confidence < 0 || d.Confidence > 100 {
		return NewValidationError("diagnosis.confidence", fmt.Sprintf("%d", d.Confidence), ErrConfidenceRange)
	}
	return nil
}

func validateStep(i int, s RepairStep) error {
	if s.StepNumber != i+1 {
		return NewValidationError(
			fmt.Sprintf("steps[%d].stepNumber", i),
			fmt.Sprintf("%d", s.StepNumber),
			ErrStepNumbering,
		)
	}
	if s.Title == "" {
		return NewValidationError(fmt.Sprintf("steps[%d].title", i), "", ErrMissingField)
	}
	if s.Instruction == "" {
		return NewValidationError(fmt.Sprintf("steps[%d].instruction", i), "", ErrMissingField)
	}
	if s.WarningLevel != "" && !validWarningLevels[s.WarningLevel] {
		return NewValidationError(fmt.Sprintf("steps[%d].warningLevel", i), string(s.WarningLevel), ErrInvalidWarningLevel)
	}
	for j, a := range s.ImageAnnotations {
		field := fmt.Sprintf("steps[%d].imageAnnotations[%d]", i, j)
		if !validAnnotationTypes[a.Type] {
			return NewValidationError(field+".type", string(a.Type), ErrInvalidAnnotation)
		}
		if !validAnnotationColors[a.Color] {
			return NewValidationError(field+".color", string(a.Color), ErrInvalidAnnotation)
		}
		if a.X < 0 || a.X > 100 || a.Y < 0 || a.Y > 100 {
			return NewValidationError(field, fmt.Sprintf("(%g,%g)", a.X, a.Y), ErrInvalidAnnotation)
		}
	}
	return nil
}

func validatePart(i int, p Part) error {
	if p.Name == "" {
		return NewValidationError(fmt.Sprintf("parts[%d].name", i), "", ErrMissingField)
	}
	if p.Difficulty != "" && !validDifficulties[p.Difficulty] {
		return NewValidationError(fmt.Sprintf("parts[%d].difficulty", i), string(p.Difficulty), ErrInvalidDifficulty)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
