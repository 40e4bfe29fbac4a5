// Package validate checks the four registration fields. Each check returns
// whether the value is valid and, when it is not, the message shown to the
// customer.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxNameRunes = 100

var (
	idRe    = regexp.MustCompile(`^\d{4,11}$`)
	nameRe  = regexp.MustCompile(`^[A-Za-z\x{00C0}-\x{00FF}\x{00D1}\x{00F1}\s]+$`)
	phoneRe = regexp.MustCompile(`^[36]\d{9}$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ID validates a customer identifier: 4 to 11 digits.
func ID(id string) (bool, string) {
	if id == "" {
		return false, "La identificación no puede estar vacía"
	}
	if !idRe.MatchString(id) {
		return false, "La identificación debe tener entre 4 y 11 dígitos numéricos"
	}
	return true, ""
}

// FullName validates a name: letters, accented letters, ñ and spaces, at most 100 characters.
func FullName(name string) (bool, string) {
	if name == "" {
		return false, "El nombre no puede estar vacío"
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return false, "El nombre no puede tener más de 100 caracteres"
	}
	if !nameRe.MatchString(name) {
		return false, "El nombre solo puede contener letras, espacios y tildes"
	}
	return true, ""
}

// Phone validates a phone number: exactly 10 digits starting with 3 or 6.
func Phone(phone string) (bool, string) {
	if phone == "" {
		return false, "El teléfono no puede estar vacío"
	}
	if !phoneRe.MatchString(phone) {
		return false, "El teléfono debe tener exactamente 10 dígitos y empezar por 3 o 6"
	}
	return true, ""
}

// Email validates an address. A missing "@" gets its own message.
func Email(email string) (bool, string) {
	if email == "" {
		return false, "El email no puede estar vacío"
	}
	if !strings.Contains(email, "@") {
		return false, "El email debe contener el símbolo @"
	}
	if !emailRe.MatchString(email) {
		return false, "El formato del email no es válido"
	}
	return true, ""
}

// All runs every check and returns the failing messages in field order:
// identifier, name, phone, email.
func All(id, name, phone, email string) (bool, []string) {
	var errs []string
	for _, check := range []struct {
		fn    func(string) (bool, string)
		value string
	}{
		{ID, id},
		{FullName, name},
		{Phone, phone},
		{Email, email},
	} {
		if ok, msg := check.fn(check.value); !ok {
			errs = append(errs, msg)
		}
	}
	return len(errs) == 0, errs
}
