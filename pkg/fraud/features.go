package fraud

import (
	"fmt"
	"slices"
)

// Feature names as they appear in the evaluation matrices and model files.
const (
	FeatureTransactionType   = "transaction_type"
	FeatureAmount            = "amount"
	FeatureLocationSender    = "location_sender"
	FeatureLocationReceiver  = "location_receiver"
	FeatureDeviceType        = "device_type"
	FeatureIsInternational   = "is_international"
	FeatureTransactionHour   = "transaction_hour"
	FeatureHour              = "hour"
	FeatureDayOfWeek         = "dayofweek"
	FeatureDay               = "day"
	FeatureIsWeekend         = "is_weekend"
	FeatureIsNight           = "is_night"
	FeatureHourSin           = "hour_sin"
	FeatureHourCos           = "hour_cos"
	FeatureLogAmount         = "log_amount"
	FeatureIsHighAmount      = "is_high_amount"
	FeatureSameLocation      = "same_location"
	FeatureHourCategory      = "hour_category"
	FeatureSenderTxnCount    = "sender_txn_count"
	FeatureReceiverTxnCount  = "receiver_txn_count"
	FeatureAnyNumericOutlier = "any_numeric_outlier"
	FeatureAmountZ           = "amount_z"
	FeatureAmountOutlier     = "amount_outlier"
	FeatureAmountCapped      = "amount_capped"
	FeatureIsoScore          = "iso_score"
	FeatureIsoFlag           = "iso_flag"
)

var (
	fieldsWithAnomaly = []string{
		FeatureTransactionType, FeatureAmount, FeatureLocationSender, FeatureLocationReceiver,
		FeatureDeviceType, FeatureIsInternational, FeatureTransactionHour, FeatureHour, FeatureDayOfWeek,
		FeatureDay, FeatureIsWeekend, FeatureIsNight, FeatureHourSin, FeatureHourCos, FeatureLogAmount,
		FeatureIsHighAmount, FeatureSameLocation, FeatureHourCategory, FeatureSenderTxnCount,
		FeatureReceiverTxnCount, FeatureAnyNumericOutlier, FeatureAmountZ, FeatureAmountOutlier,
		FeatureAmountCapped, FeatureIsoScore, FeatureIsoFlag,
	}

	fieldsWithoutAnomaly = slices.DeleteFunc(slices.Clone(fieldsWithAnomaly), func(f string) bool {
		return f == FeatureIsoScore || f == FeatureIsoFlag
	})

	// defaultOverrides are the non-zero (or explicitly pinned) defaults of the
	// base vector single-record inference starts from.
	defaultOverrides = map[string]float64{
		FeatureSameLocation:      1,
		FeatureTransactionHour:   10,
		FeatureIsWeekend:         0,
		FeatureAnyNumericOutlier: 0,
	}
)

// Fields returns the ordered feature list the model behind the choice was
// built against. The returned slice is a copy.
func Fields(c ModelChoice) []string {
	if c == WithAnomaly {
		return slices.Clone(fieldsWithAnomaly)
	}
	return slices.Clone(fieldsWithoutAnomaly)
}

// AllFields returns every known feature in canonical order.
func AllFields() []string {
	return slices.Clone(fieldsWithAnomaly)
}

// Vector maps feature names to values.
type Vector map[string]float64

// DefaultVector returns the base vector: 0 for every known feature plus the
// documented overrides.
func DefaultVector() Vector {
	v := make(Vector, len(fieldsWithAnomaly))
	for _, f := range fieldsWithAnomaly {
		v[f] = 0
	}
	for k, val := range defaultOverrides {
		v[k] = val
	}
	return v
}

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	for k, val := range v {
		c[k] = val
	}
	return c
}

// Project returns the values of the listed fields in list order.
func (v Vector) Project(fields []string) ([]float64, error) {
	row := make([]float64, len(fields))
	for i, f := range fields {
		val, ok := v[f]
		if !ok {
			return nil, fmt.Errorf("%w: vector has no field %q", ErrFeatureMismatch, f)
		}
		row[i] = val
	}
	return row, nil
}
