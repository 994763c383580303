package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePIN(t *testing.T) {
	tests := []struct {
		name    string
		pin     string
		errMsg  string
		wantErr bool
	}{
		{name: "valid - 4 digits", pin: "1234"},
		{name: "valid - 5 digits", pin: "12345"},
		{name: "valid - 6 digits", pin: "000000"},
		{name: "invalid - empty", pin: "", wantErr: true, errMsg: "PIN cannot be empty"},
		{name: "invalid - 3 digits", pin: "123", wantErr: true, errMsg: "PIN must be 4 to 6 digits"},
		{name: "invalid - 7 digits", pin: "1234567", wantErr: true, errMsg: "PIN must be 4 to 6 digits"},
		{name: "invalid - letters", pin: "12a4", wantErr: true, errMsg: "PIN must be 4 to 6 digits"},
		{name: "invalid - non-ascii digits", pin: "١٢٣٤", wantErr: true, errMsg: "PIN must be 4 to 6 digits"},
		{name: "invalid - whitespace", pin: "1234 ", wantErr: true, errMsg: "PIN must be 4 to 6 digits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePIN(tt.pin)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassphrase(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		wantErr    bool
	}{
		{name: "valid - letters only", passphrase: "correcthorsebattery"},
		{name: "valid - minimum length", passphrase: "abcdefgh"},
		{name: "valid - maximum length", passphrase: strings.Repeat("a", MaxPassphraseLen)},
		{name: "valid - punctuation", passphrase: "P@ss-w0rd!{}[]~`"},
		{name: "invalid - empty", passphrase: "", wantErr: true},
		{name: "invalid - too short", passphrase: "abcdefg", wantErr: true},
		{name: "invalid - too long", passphrase: strings.Repeat("a", MaxPassphraseLen+1), wantErr: true},
		{name: "invalid - space", passphrase: "correct horse", wantErr: true},
		{name: "invalid - non-ascii", passphrase: "пароль-пароль", wantErr: true},
		{name: "invalid - tab", passphrase: "abc\tdefgh", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassphrase(tt.passphrase)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCredentials_ChecksPINFirst(t *testing.T) {
	err := ValidateCredentials("12", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PIN")

	err = ValidateCredentials("1234", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passphrase")

	assert.NoError(t, ValidateCredentials("1234", "correcthorsebattery"))
}
