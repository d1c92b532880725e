package core

import (
	"errors"
	"strings"
)

var (
	ErrUnknownEmployee   = errors.New("employee not found")
	ErrAmbiguousEmployee = errors.New("employee name matches more than one employee")
)

// Directory resolves the free-form identifiers found in uploaded sheets to employee ids.
// Lookups are case and whitespace insensitive and accept the display name, the
// employee number or the email address.
type Directory struct {
	index map[string][]string
}

func NewDirectory(employees []Employee) *Directory {
	d := &Directory{index: map[string][]string{}}
	for _, emp := range employees {
		keys := map[string]struct{}{}
		for _, raw := range []string{emp.DisplayName(), emp.EmployeeNumber, emp.Email} {
			key := normalizeIdentifier(raw)
			if key == "" {
				continue
			}
			keys[key] = struct{}{}
		}
		for key := range keys {
			d.index[key] = append(d.index[key], emp.ID)
		}
	}
	return d
}

func (d *Directory) Resolve(identifier string) (string, error) {
	ids := d.index[normalizeIdentifier(identifier)]
	switch len(ids) {
	case 0:
		return "", ErrUnknownEmployee
	case 1:
		return ids[0], nil
	default:
		return "", ErrAmbiguousEmployee
	}
}

func normalizeIdentifier(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}
