package harvest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/harvest-advisor/internal/apperrors"
	"github.com/i474232898/harvest-advisor/internal/common"
)

var validate = validator.New()

// NormalizeRequest sanitizes the free-text fields, compacts the dates to YYYYMMDD
// and parses the optional temperature range.
func NormalizeRequest(req PlanRequest) (Query, error) {
	q := Query{
		CropType:  common.SanitizeInput(strings.TrimSpace(req.CropType)),
		Location:  common.SanitizeInput(strings.TrimSpace(req.Location)),
		StartDate: common.SanitizeInput(common.CompactDate(req.StartDate)),
		EndDate:   common.SanitizeInput(common.CompactDate(req.EndDate)),
	}

	if err := validate.Struct(q); err != nil {
		return Query{}, apperrors.Wrap(apperrors.CodeInvalidInput, "please fill in all fields", err)
	}

	rng, err := ParseTemperatureRange(req.MinTemp, req.MaxTemp)
	if err != nil {
		return Query{}, err
	}
	q.Range = rng
	return q, nil
}

// ParseTemperatureRange parses the min/max temperature fields. Both empty means no
// range. One-sided or non-numeric input is rejected.
func ParseTemperatureRange(minStr, maxStr string) (*Range, error) {
	minStr, maxStr = strings.TrimSpace(minStr), strings.TrimSpace(maxStr)
	if minStr == "" && maxStr == "" {
		return nil, nil
	}
	if minStr == "" || maxStr == "" {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "minimum and maximum temperature must be given together", nil)
	}

	minT, err := parseTemperature("minimum", minStr)
	if err != nil {
		return nil, err
	}
	maxT, err := parseTemperature("maximum", maxStr)
	if err != nil {
		return nil, err
	}
	return &Range{Min: minT, Max: maxT}, nil
}

func parseTemperature(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("%s temperature must be a number", field), err)
	}
	return v, nil
}
