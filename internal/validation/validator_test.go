package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/artriverapp/artriver-server/internal/errors"
)

type indexForm struct {
	Action    string `json:"action" validate:"required,oneof=index_all rebuild"`
	BatchSize int    `json:"batch_size,omitempty" validate:"omitempty,gte=1,lte=1000"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(indexForm{Action: "index_all", BatchSize: 50}))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(indexForm{Action: "index_all", BatchSize: 5000})
	require.Error(t, err)

	var appErr *domainerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domainerrors.CodeValidation, appErr.Code)

	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	// The json tag name wins over the Go field name, options stripped.
	assert.Contains(t, details, "batch_size")
	assert.NotContains(t, details, "BatchSize")
}

func TestValidate_FriendlyMessages(t *testing.T) {
	v := New()
	err := v.Validate(indexForm{Action: "drop_everything"})
	require.Error(t, err)

	var appErr *domainerrors.Error
	require.ErrorAs(t, err, &appErr)
	details := appErr.Details.(map[string]string)
	assert.Equal(t, "must be one of: index_all rebuild", details["action"])

	err = v.Validate(indexForm{})
	require.ErrorAs(t, err, &appErr)
	details = appErr.Details.(map[string]string)
	assert.Equal(t, "is required", details["action"])
}
