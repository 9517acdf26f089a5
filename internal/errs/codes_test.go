package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryFromCode_MapsNumericDigitToCategory(t *testing.T) {
	assert.Equal(t, CategoryConfig, categoryFromCode(ErrCodeConfigInvalid))
	assert.Equal(t, CategoryIO, categoryFromCode(ErrCodeIndexCorrupted))
	assert.Equal(t, CategoryNetwork, categoryFromCode(ErrCodeNetworkTimeout))
	assert.Equal(t, CategoryValidation, categoryFromCode(ErrCodeInvalidInput))
	assert.Equal(t, CategoryInternal, categoryFromCode(ErrCodeInternal))
}

func TestCategoryFromCode_ShortCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CategoryInternal, categoryFromCode("bad"))
}

func TestSeverityFromCode_FatalForCorruptionAndStorageCodes(t *testing.T) {
	assert.Equal(t, SeverityFatal, severityFromCode(ErrCodeIndexCorrupted))
	assert.Equal(t, SeverityFatal, severityFromCode(ErrCodeDiskFull))
	assert.Equal(t, SeverityFatal, severityFromCode(ErrCodeStagingFailed))
}

func TestSeverityFromCode_WarningForRetryableCodes(t *testing.T) {
	assert.Equal(t, SeverityWarning, severityFromCode(ErrCodeNetworkTimeout))
}

func TestSeverityFromCode_ErrorIsDefault(t *testing.T) {
	assert.Equal(t, SeverityError, severityFromCode(ErrCodeInvalidInput))
}

func TestIsRetryableCode_TrueOnlyForNetworkCodes(t *testing.T) {
	assert.True(t, isRetryableCode(ErrCodeNetworkTimeout))
	assert.True(t, isRetryableCode(ErrCodeNetworkUnavailable))
	assert.False(t, isRetryableCode(ErrCodeIndexCorrupted))
}
