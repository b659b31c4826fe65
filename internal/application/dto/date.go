package dto

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// Date fecha de entrada/salida JSON. Acepta "YYYY-MM-DD" (formulario del cliente) o RFC 3339.
type Date struct {
	time.Time
}

// UnmarshalJSON admite null, "", fecha corta o RFC 3339.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalJSON serializa en RFC 3339 (UTC).
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

// ParseDate interpreta "YYYY-MM-DD" como medianoche UTC o un instante RFC 3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("fecha inválida %q: use YYYY-MM-DD o RFC 3339", s)
}
