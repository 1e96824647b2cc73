package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"t1", true},
		{"add-dark-mode-1a2b3c4d", true},
		{"v1.2_fix", true},
		{"", false},
		{"Upper", false},
		{"-leading", false},
		{"a/b", false},
		{"a..b", false},
		{"has space", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateID("create", tt.id)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalid))
			}
		})
	}
}

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory("create", "t1", CategoryFeature))
	assert.NoError(t, ValidateCategory("create", "t1", Category("api-connector")))
	assert.Error(t, ValidateCategory("create", "t1", Category("Feature")))
	assert.Error(t, ValidateCategory("create", "t1", Category("")))
}

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("done").Valid())
	assert.Error(t, ValidateStatus("set-status", "t1", Status("done")))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Add dark mode", 0, "add-dark-mode"},
		{"  Crème brûlée API!! ", 0, "creme-brulee-api"},
		{"Stripe / Payments (v2)", 0, "stripe-payments-v2"},
		{"日本語", 0, ""},
		{"a very long title indeed", 10, "a-very-lon"},
		{"abc def", 4, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in, tt.max))
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	// "e" + combining acute composes to a single rune under NFC.
	assert.Equal(t, "caf\u00e9", NormalizeTitle("  cafe\u0301 "))
}

func TestSummaryEqual(t *testing.T) {
	u := WorkUnit{ID: "t1", Title: "x", Category: CategoryFeature, Status: StatusPlanning, Attributes: map[string]string{"a": "b"}}
	s := u.Summary()
	assert.True(t, s.Equal(u.Summary()))

	other := s
	other.Attributes = map[string]string{"a": "c"}
	assert.False(t, s.Equal(other))
}
