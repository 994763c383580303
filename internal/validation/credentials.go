package validation

import (
	"fmt"
	"regexp"
)

// PINPattern allows 4 to 6 decimal digits.
var PINPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// PassphrasePattern allows ASCII letters, digits and a fixed punctuation set.
var PassphrasePattern = regexp.MustCompile("^[A-Za-z0-9!@#$%^&*()_+\\-=\\[\\]{};':\",.<>/?\\\\|`~]+$")

const (
	// MinPassphraseLen минимальная длина passphrase
	MinPassphraseLen = 8
	// MaxPassphraseLen максимальная длина passphrase
	MaxPassphraseLen = 256
)

// ValidatePIN checks that pin consists of 4 to 6 digits.
func ValidatePIN(pin string) error {
	if pin == "" {
		return fmt.Errorf("PIN cannot be empty")
	}

	if !PINPattern.MatchString(pin) {
		return fmt.Errorf("PIN must be 4 to 6 digits")
	}

	return nil
}

// ValidatePassphrase checks length and character set of a passphrase.
func ValidatePassphrase(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase cannot be empty")
	}

	if len(passphrase) < MinPassphraseLen {
		return fmt.Errorf("passphrase must be at least %d characters long", MinPassphraseLen)
	}

	if len(passphrase) > MaxPassphraseLen {
		return fmt.Errorf("passphrase must not exceed %d characters", MaxPassphraseLen)
	}

	if !PassphrasePattern.MatchString(passphrase) {
		return fmt.Errorf("passphrase can only contain letters, digits and punctuation")
	}

	return nil
}

// ValidateCredentials runs both credential checks, PIN first.
func ValidateCredentials(pin, passphrase string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	return ValidatePassphrase(passphrase)
}
